package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/observability"
	"liquidity-monitor/internal/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type staticGlobal struct{ gm *domain.GlobalMarket }

func (s staticGlobal) LatestGlobal(context.Context) *domain.GlobalMarket { return s.gm }

// seedDaily stores 40 consecutive days starting 2024-01-01, value(i) per day.
func seedDaily(t *testing.T, s store.Store, seriesID string, value func(i int) float64) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.Point, 0, 40)
	for i := 0; i < 40; i++ {
		points = append(points, domain.Point{Date: domain.FormatDate(start.AddDate(0, 0, i)), Value: value(i)})
	}
	if _, err := s.Upsert(context.Background(), seriesID, points); err != nil {
		t.Fatalf("seed %s: %v", seriesID, err)
	}
}

func newSeededMetrics(t *testing.T, global GlobalSource, m *observability.Metrics) *MetricsService {
	t.Helper()
	mem := store.NewMemoryStore()
	seedDaily(t, mem, domain.SeriesFedBalanceSheet, func(i int) float64 { return 7_000_000 + float64(i)*1000 })
	seedDaily(t, mem, domain.SeriesTreasuryAccount, func(int) float64 { return 700_000 })
	seedDaily(t, mem, domain.SeriesReverseRepo, func(int) float64 { return 500 })
	seedDaily(t, mem, domain.SeriesBTCPrice, func(i int) float64 { return 100 + float64(i) })
	seedDaily(t, mem, domain.SeriesUSDTMcap, func(int) float64 { return 50e9 })

	svc := NewMetricsService(testTracer, zap.NewNop(), mem, global, m, domain.DefaultCatalog(), 0)
	svc.now = func() time.Time { return time.Date(2024, 2, 9, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestMetricsService_Dashboard(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("test")
	svc := newSeededMetrics(t, nil, metrics)

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// WRESBAL and M2SL have no rows and are left out.
	wantRows := []string{
		domain.SeriesFedBalanceSheet, domain.SeriesTreasuryAccount,
		domain.SeriesReverseRepo, domain.SeriesNetLiquidity,
	}
	if len(d.Table) != len(wantRows) {
		t.Fatalf("expected %d rows, got %+v", len(wantRows), d.Table)
	}
	for i, id := range wantRows {
		if d.Table[i].SeriesID != id {
			t.Fatalf("row %d: expected %s, got %s", i, id, d.Table[i].SeriesID)
		}
	}

	fed := d.Table[0]
	if fed.Current != 7.039 || fed.CurrentDate != "2024-02-09" {
		t.Fatalf("unexpected WALCL row: %+v", fed)
	}
	if fed.WeekChange.Float64 != 7 || fed.MonthChange.Float64 != 30 {
		t.Fatalf("unexpected WALCL changes: %+v", fed)
	}
	if rrp := d.Table[2]; rrp.Current != 0.5 || !rrp.WeekChange.Valid || rrp.WeekChange.Float64 != 0 {
		t.Fatalf("unexpected RRP row: %+v", rrp)
	}

	if len(d.NetLiquidity) != 40 || d.NetLiquidity[39].Value != 5.839 {
		t.Fatalf("unexpected net liquidity chart tail: %+v", d.NetLiquidity[len(d.NetLiquidity)-1])
	}
	if d.Impulse == nil || d.Impulse.ChangeBillions != 30 {
		t.Fatalf("expected 30B impulse, got %+v", d.Impulse)
	}
	if d.Regime != domain.RegimeExpanding {
		t.Fatalf("expected expanding regime, got %s", d.Regime)
	}
	if d.GeneratedAt != "2024-02-09 12:00 UTC" {
		t.Fatalf("unexpected generated_at %q", d.GeneratedAt)
	}
	if len(d.GlobalLiquidity) != 0 || len(d.Altcoins) != 0 {
		t.Fatal("expected empty histories for unseeded series")
	}

	if got := testutil.ToFloat64(metrics.NetLiquidityMillions); got != 5_839_000 {
		t.Fatalf("expected net liquidity gauge 5839000, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ImpulseBillions); got != 30 {
		t.Fatalf("expected impulse gauge 30, got %v", got)
	}
}

func TestMetricsService_Summary(t *testing.T) {
	t.Parallel()

	d, err := newSeededMetrics(t, nil, nil).Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := d.Summary

	if sum.NetLiquidity.Float64 != 5.839 {
		t.Fatalf("unexpected net liquidity card: %v", sum.NetLiquidity)
	}
	if sum.BTCPrice.Float64 != 139 {
		t.Fatalf("unexpected btc price card: %v", sum.BTCPrice)
	}
	// 30 points back from 139 is 109.
	if sum.BTC30dPct.Float64 != 27.5 {
		t.Fatalf("unexpected btc 30d pct: %v", sum.BTC30dPct)
	}
	if sum.StablecoinTotal.Float64 != 50 || !sum.Stablecoin30dChange.Valid || sum.Stablecoin30dChange.Float64 != 0 {
		t.Fatalf("unexpected stablecoin cards: %v %v", sum.StablecoinTotal, sum.Stablecoin30dChange)
	}
	if sum.ETHPrice.Valid || sum.GlobalLiquidity.Valid || sum.AltcoinMcap.Valid {
		t.Fatalf("expected absent cards to stay null: %+v", sum)
	}
}

func TestMetricsService_AltcoinsUseGlobalSource(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore()
	ctx := context.Background()
	if _, err := mem.Upsert(ctx, domain.SeriesETHMcap, []domain.Point{{Date: "2024-02-09", Value: 10e9}}); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.Upsert(ctx, domain.SeriesBTCMcap, []domain.Point{{Date: "2024-02-09", Value: 60e9}}); err != nil {
		t.Fatal(err)
	}

	global := staticGlobal{gm: &domain.GlobalMarket{TotalMcap: 100e9, BTCMcapPct: 60}}
	svc := NewMetricsService(testTracer, zap.NewNop(), mem, global, nil, domain.DefaultCatalog(), 0)

	d, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Altcoins) != 1 || d.Altcoins[0].Value != 40 {
		t.Fatalf("expected scaled altcoin estimate of 40, got %+v", d.Altcoins)
	}
}

func TestMetricsService_History(t *testing.T) {
	t.Parallel()

	svc := newSeededMetrics(t, nil, nil)

	btc, err := svc.History(context.Background(), HistoryBTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(btc) != 40 || btc[0].Value != 100 {
		t.Fatalf("unexpected btc history: %d points", len(btc))
	}

	if _, err := svc.History(context.Background(), "gold"); !errors.Is(err, ErrUnknownHistory) {
		t.Fatalf("expected ErrUnknownHistory, got %v", err)
	}
}

func TestMetricsService_NetLiquidityHistoryWindow(t *testing.T) {
	t.Parallel()

	history, err := newSeededMetrics(t, nil, nil).NetLiquidityHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 10 {
		t.Fatalf("expected 10 points, got %d", len(history))
	}
	if history[9].Date != "2024-02-09" || history[9].Value != 5_839_000 {
		t.Fatalf("unexpected latest point: %+v", history[9])
	}
}

func TestMetricsService_EmptyStore(t *testing.T) {
	t.Parallel()

	svc := NewMetricsService(testTracer, zap.NewNop(), store.NewMemoryStore(), nil, nil, domain.DefaultCatalog(), 0)
	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Table) != 0 || d.Impulse != nil || d.Regime != domain.RegimeNeutral {
		t.Fatalf("expected an empty neutral dashboard, got %+v", d)
	}
	if d.Snapshot.AnyCurrent() {
		t.Fatal("expected no current values")
	}
}
