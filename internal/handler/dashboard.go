package handler

import (
	"errors"
	"net/http"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/provider"
	"liquidity-monitor/internal/service"
	"liquidity-monitor/internal/site"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type refreshResponse struct {
	*domain.Dashboard
	Refreshed int    `json:"refreshed"`
	RunID     string `json:"run_id"`
}

type historyResponse struct {
	Name   string         `json:"name"`
	Points []domain.Point `json:"points"`
}

// Index renders the live dashboard page.
func (h *Handler) Index(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.index")
	defer span.End()

	d, err := h.dashboards.Dashboard(ctx)
	if err != nil {
		h.logger.Error("build dashboard failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to build dashboard")
		return
	}
	page, err := site.Render(d, true)
	if err != nil {
		h.logger.Error("render dashboard failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render dashboard")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// GetData godoc
// @Summary      Get dashboard data
// @Description  Returns the liquidity table, summary cards, chart histories, impulse and regime
// @Tags         liquidity
// @Produce      json
// @Success      200  {object}  domain.Dashboard
// @Failure      500  {object}  map[string]string
// @Router       /api/data [get]
func (h *Handler) GetData(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-data")
	defer span.End()

	d, err := h.dashboards.Dashboard(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// Refresh godoc
// @Summary      Refresh FRED series
// @Description  Fetches every FRED series, upserts the observations and returns the rebuilt dashboard
// @Tags         liquidity
// @Produce      json
// @Success      200  {object}  refreshResponse
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.refresh")
	defer span.End()

	res, err := h.refresher.FetchFRED(ctx)
	switch {
	case errors.Is(err, provider.ErrMissingAPIKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrRefreshInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("run_id", res.RunID), attribute.Int("upserted", res.Total))

	d, err := h.dashboards.Dashboard(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, refreshResponse{Dashboard: d, Refreshed: res.Total, RunID: res.RunID})
}

// GetHistory godoc
// @Summary      Get a derived history
// @Description  Returns one named history: net_liquidity, global_liquidity, stablecoins, altcoins, btc, eth or nfci
// @Tags         liquidity
// @Produce      json
// @Param        name  path  string  true  "History name"
// @Success      200  {object}  historyResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/history/{name} [get]
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	name := c.Param("name")
	span.SetAttributes(attribute.String("history", name))

	points, err := h.dashboards.History(ctx, name)
	if errors.Is(err, service.ErrUnknownHistory) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     err.Error(),
			"histories": service.HistoryNames,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, historyResponse{Name: name, Points: points})
}
