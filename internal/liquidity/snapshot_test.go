package liquidity

import (
	"context"
	"testing"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/series"
	"liquidity-monitor/internal/store"
)

func seed(t *testing.T, s *store.MemoryStore, id string, points ...domain.Point) {
	t.Helper()
	if _, err := s.Upsert(context.Background(), id, points); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestBuildSnapshotAgreesWithHistoryOnAlignedData(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	dates := []string{"2024-01-31", "2024-02-23", "2024-03-01"}
	seed(t, s, domain.SeriesFedBalanceSheet,
		domain.Point{Date: dates[0], Value: 7_600_000},
		domain.Point{Date: dates[1], Value: 7_580_000},
		domain.Point{Date: dates[2], Value: 7_550_000})
	seed(t, s, domain.SeriesTreasuryAccount,
		domain.Point{Date: dates[0], Value: 750_000},
		domain.Point{Date: dates[1], Value: 800_000},
		domain.Point{Date: dates[2], Value: 780_000})
	seed(t, s, domain.SeriesReverseRepo,
		domain.Point{Date: dates[0], Value: 600},
		domain.Point{Date: dates[1], Value: 500},
		domain.Point{Date: dates[2], Value: 450})

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap, err := BuildSnapshot(ctx, s, domain.DefaultCatalog(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	load := func(id string) series.Series {
		h, err := s.History(ctx, id, 100)
		if err != nil {
			t.Fatalf("history %s: %v", id, err)
		}
		return series.FromPoints(h)
	}
	history := series.FromPoints(NetLiquidityHistory(
		load(domain.SeriesFedBalanceSheet),
		load(domain.SeriesTreasuryAccount),
		load(domain.SeriesReverseRepo),
	))

	nl, ok := snap[domain.SeriesNetLiquidity]
	if !ok {
		t.Fatal("expected a net liquidity entry")
	}
	if nl.Label != "Net Liquidity" || nl.CurrentDate != "2024-03-01" {
		t.Fatalf("unexpected entry: %+v", nl)
	}
	checks := map[string]float64{
		dates[2]: nl.Current.Float64,
		dates[1]: nl.WeekAgo.Float64,
		dates[0]: nl.MonthAgo.Float64,
	}
	for date, got := range checks {
		want, _ := history.Get(date)
		if got != want {
			t.Fatalf("snapshot and history disagree on %s: %v vs %v", date, got, want)
		}
	}
	if nl.WeekChange.Float64 != nl.Current.Float64-nl.WeekAgo.Float64 {
		t.Fatalf("unexpected week change: %+v", nl)
	}
}

func TestBuildSnapshotMissingSeries(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, domain.SeriesFedBalanceSheet, domain.Point{Date: "2024-03-01", Value: 7_550_000})

	snap, err := BuildSnapshot(context.Background(), s, domain.DefaultCatalog(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snap) != len(domain.DefaultCatalog().USSeries) {
		t.Fatalf("expected one entry per US series and no net liquidity, got %d", len(snap))
	}
	reserves := snap[domain.SeriesBankReserves]
	if reserves.Label != "Bank Reserves" || reserves.HasCurrent() {
		t.Fatalf("expected label-only entry, got %+v", reserves)
	}
	fed := snap[domain.SeriesFedBalanceSheet]
	if !fed.HasCurrent() || fed.WeekAgo.Valid || fed.WeekChange.Valid {
		t.Fatalf("expected current without references, got %+v", fed)
	}
}

func TestBuildSnapshotZeroComponentSkipsDelta(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, domain.SeriesFedBalanceSheet,
		domain.Point{Date: "2024-02-20", Value: 7_600_000},
		domain.Point{Date: "2024-03-01", Value: 7_550_000})
	seed(t, s, domain.SeriesTreasuryAccount,
		domain.Point{Date: "2024-02-20", Value: 800_000},
		domain.Point{Date: "2024-03-01", Value: 780_000})
	seed(t, s, domain.SeriesReverseRepo,
		domain.Point{Date: "2024-02-20", Value: 0},
		domain.Point{Date: "2024-03-01", Value: 450})

	snap, err := BuildSnapshot(context.Background(), s, domain.DefaultCatalog(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rrp := snap[domain.SeriesReverseRepo]
	if !rrp.WeekAgo.Valid || rrp.WeekAgo.Float64 != 0 {
		t.Fatalf("expected a zero week-ago RRP value, got %+v", rrp)
	}
	nl := snap[domain.SeriesNetLiquidity]
	if !nl.HasCurrent() {
		t.Fatal("expected a current net liquidity value")
	}
	if nl.WeekAgo.Valid || nl.WeekChange.Valid {
		t.Fatalf("zero component should skip the week delta, got %+v", nl)
	}
	if want := NetLiquidity(7_550_000, 780_000, 450); nl.Current.Float64 != want {
		t.Fatalf("expected %v, got %v", want, nl.Current.Float64)
	}
}

func TestNetLiquidityScalesReverseRepo(t *testing.T) {
	if got := NetLiquidity(100, 10, 5); got != -4910 {
		t.Fatalf("expected -4910, got %v", got)
	}
}
