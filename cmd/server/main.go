package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"liquidity-monitor/internal/app"
	"liquidity-monitor/internal/bot"
	"liquidity-monitor/internal/config"
	"liquidity-monitor/internal/handler"
	"liquidity-monitor/internal/job"
	"liquidity-monitor/internal/logging"
	"liquidity-monitor/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	_ "liquidity-monitor/docs"
)

const serviceName = "liquidity-monitor"

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	newLoggerFunc          = logging.New
	initTracerFunc         = tracing.InitTracer
	newAppFunc             = app.New
	newRefreshJobFunc      = job.NewRefreshJob
	startRefreshJobFunc    = func(j *job.RefreshJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	exitFunc               = os.Exit
)

// @title           Liquidity Monitor API
// @version         1.0
// @description     Liquidity dashboard over FRED and CoinGecko series.

// @host      localhost:5050
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()

	logger, err := newLoggerFunc(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		exitFunc(1)
		return
	}
	defer logger.Sync()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		logger.Error("failed to initialize tracer", zap.Error(err))
		exitFunc(1)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Store, providers, cache and services
	a, err := newAppFunc(ctx, cfg, logger, tracer)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		exitFunc(1)
		return
	}
	defer a.Close()

	// Scheduled refresh (background goroutine, stopped by ctx cancel)
	if cfg.RefreshCron != "" {
		refreshJob, err := newRefreshJobFunc(tracer, logger, a.Ingest, cfg.RefreshCron, true)
		if err != nil {
			logger.Error("invalid REFRESH_CRON", zap.Error(err))
			exitFunc(1)
			return
		}
		startRefreshJobFunc(refreshJob, ctx)
	}

	// Start Telegram bot
	telegram, err := startTelegramBotFunc(cfg.TelegramBotToken, logger, a.Dashboards)
	if err != nil {
		logger.Warn("Telegram bot disabled", zap.Error(err))
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, logger, a.Dashboards, a.Ingest, a.Metrics.Handler())

	r := newRouterFunc()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(handler.RequestLogger(logger))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", zap.Error(err))
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-waitFor(quit):
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	cancel()
	stopBot(telegram)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// waitFor runs waitForSignalFunc in the background and closes the returned
// channel once it returns.
func waitFor(quit <-chan os.Signal) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		waitForSignalFunc(quit)
		close(done)
	}()
	return done
}

// corsMiddleware allows the configured origins, or any origin when none
// are set.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func stopBot(b *tele.Bot) {
	if b != nil {
		b.Stop()
	}
}
