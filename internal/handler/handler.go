package handler

import (
	"context"
	"net/http"
	"time"

	"liquidity-monitor/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type DashboardService interface {
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
	History(ctx context.Context, name string) ([]domain.Point, error)
}

type Refresher interface {
	FetchFRED(ctx context.Context) (domain.RefreshResult, error)
}

type Handler struct {
	tracer     trace.Tracer
	logger     *zap.Logger
	dashboards DashboardService
	refresher  Refresher
	metrics    http.Handler
	startedAt  time.Time
}

// New wires the HTTP handlers. metrics may be nil, which leaves /metrics
// unregistered.
func New(tracer trace.Tracer, logger *zap.Logger, dashboards DashboardService, refresher Refresher, metrics http.Handler) *Handler {
	return &Handler{
		tracer:     tracer,
		logger:     logger,
		dashboards: dashboards,
		refresher:  refresher,
		metrics:    metrics,
		startedAt:  time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/health", h.Health)
	r.GET("/api/data", h.GetData)
	r.POST("/api/refresh", h.Refresh)
	r.GET("/api/history/:name", h.GetHistory)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}
