package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"liquidity-monitor/internal/app"
	"liquidity-monitor/internal/config"
	applog "liquidity-monitor/internal/logging"
	"liquidity-monitor/internal/tui"
	"liquidity-monitor/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	newLoggerFunc     = applog.New
	initTracerFunc    = tracing.InitTracer
	newAppFunc        = app.New
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
	exitFunc          = os.Exit
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, "liquidity-ssh")
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

	a, err := newAppFunc(ctx, cfg, logger, tracer)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		exitFunc(1)
		return
	}
	defer a.Close()

	// Build Wish SSH server. The dashboard is read-only, so any client is let in.
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			logger.Info("ssh session accepted",
				zap.String("user", ctx.User()),
				zap.String("fingerprint", gossh.FingerprintSHA256(key)),
			)
			return true
		}),
		wish.WithKeyboardInteractiveAuth(func(ctx ssh.Context, _ gossh.KeyboardInteractiveChallenge) bool {
			logger.Info("ssh session accepted", zap.String("user", ctx.User()))
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewModel(a.Dashboards, a.Catalog)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		logger.Error("failed to create SSH server", zap.Error(err))
		exitFunc(1)
		return
	}

	if srv != nil {
		go func() {
			logger.Info("SSH server listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				logger.Error("SSH server stopped", zap.Error(err))
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("SSH server shutdown error", zap.Error(err))
		}
	}

	logger.Info("SSH server exited")
}
