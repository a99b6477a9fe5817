// Package app wires the store, providers, cache and services shared by every
// binary.
package app

import (
	"context"
	"errors"
	"fmt"

	"liquidity-monitor/internal/cache"
	"liquidity-monitor/internal/config"
	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/observability"
	"liquidity-monitor/internal/provider"
	"liquidity-monitor/internal/service"
	"liquidity-monitor/internal/store"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	openStoreFunc = store.Open
	initRedisFunc = cache.InitRedis
)

type App struct {
	Catalog    domain.Catalog
	Store      store.Store
	Metrics    *observability.Metrics
	Ingest     *service.IngestService
	Dashboards *service.MetricsService

	redis *redis.Client
}

// New opens the store and builds the services. A missing FRED key leaves
// FRED refreshes failing with provider.ErrMissingAPIKey; an unreachable
// Redis only disables the cache.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, tracer trace.Tracer) (*App, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	st, err := openStoreFunc(ctx, cfg.DatabaseURL, tracer)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	metrics := observability.NewMetrics("")

	var fred service.FREDFetcher
	fredProvider, err := provider.NewFREDProvider(cfg.FREDAPIKey, tracer, logger)
	switch {
	case errors.Is(err, provider.ErrMissingAPIKey):
		logger.Warn("FRED_API_KEY not set, FRED refreshes are disabled")
	case err != nil:
		_ = st.Close()
		return nil, err
	default:
		fred = fredProvider
	}
	crypto := provider.NewCoinGeckoProvider(cfg.CoinGeckoAPIKey, tracer, logger)

	a := &App{Catalog: catalog, Store: st, Metrics: metrics}

	var globalCache service.GlobalCache
	client, err := initRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, global market cache disabled", zap.Error(err))
	} else if client != nil {
		a.redis = client
		globalCache = cache.NewGlobalMarketCache(client, cache.DefaultGlobalTTL)
		logger.Info("redis cache enabled")
	}

	a.Ingest = service.NewIngestService(tracer, logger, st, fred, crypto, globalCache, metrics, catalog)
	a.Dashboards = service.NewMetricsService(tracer, logger, st, a.Ingest, metrics, catalog, cfg.HistoryWindow)
	return a, nil
}

// Close releases the cache connection and the store.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
