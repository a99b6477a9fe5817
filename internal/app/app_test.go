package app

import (
	"context"
	"errors"
	"testing"

	"liquidity-monitor/internal/config"
	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/provider"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func TestNewWithoutFREDKey(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "memory:"}
	a, err := New(context.Background(), cfg, zap.NewNop(), testTracer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if _, err := a.Ingest.FetchFRED(context.Background()); !errors.Is(err, provider.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	d, err := a.Dashboards.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Table) != 0 {
		t.Fatalf("expected an empty table, got %+v", d.Table)
	}
}

func TestNewSharesStoreBetweenServices(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "memory:", FREDAPIKey: "key"}
	a, err := New(context.Background(), cfg, zap.NewNop(), testTracer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	seed := map[string]float64{
		domain.SeriesFedBalanceSheet: 7_000_000,
		domain.SeriesTreasuryAccount: 700_000,
		domain.SeriesReverseRepo:     500,
	}
	for id, v := range seed {
		if _, err := a.Store.Upsert(ctx, id, []domain.Point{{Date: "2024-03-01", Value: v}}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	history, err := a.Dashboards.NetLiquidityHistory(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 || history[0].Value != 5_800_000 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestNewContinuesWhenRedisIsDown(t *testing.T) {
	orig := initRedisFunc
	defer func() { initRedisFunc = orig }()
	initRedisFunc = func(context.Context, string) (*redis.Client, error) {
		return nil, errors.New("connection refused")
	}

	cfg := &config.Config{DatabaseURL: "memory:", RedisURL: "localhost:6379"}
	a, err := New(context.Background(), cfg, zap.NewNop(), testTracer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.redis != nil {
		t.Fatal("expected no redis client")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestNewRejectsUnsupportedDSN(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "mysql://localhost/liquidity"}
	if _, err := New(context.Background(), cfg, zap.NewNop(), testTracer); err == nil {
		t.Fatal("expected an error for an unsupported DSN")
	}
}
