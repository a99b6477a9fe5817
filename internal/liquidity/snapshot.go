package liquidity

import (
	"context"
	"fmt"
	"time"

	"liquidity-monitor/internal/domain"

	"github.com/guregu/null/v6"
)

const (
	weekLookbackDays  = 7
	monthLookbackDays = 30
)

// SnapshotReader is the store surface the snapshot builder reads.
type SnapshotReader interface {
	Latest(ctx context.Context, seriesID string, limit int) ([]domain.Point, error)
	ValueOnOrBefore(ctx context.Context, seriesID, date string) (domain.Point, bool, error)
}

// BuildSnapshot returns, for each US series of the catalog, its latest value
// and the changes against the values on or before now-7d and now-30d, plus a
// synthetic NET_LIQUIDITY entry.
//
// Net liquidity here is recomputed from the component entries at each
// reference point, not read from NetLiquidityHistory. The two agree only
// when the components share dates.
func BuildSnapshot(ctx context.Context, r SnapshotReader, catalog domain.Catalog, now time.Time) (domain.Snapshot, error) {
	weekAgo := domain.DaysBefore(now, weekLookbackDays)
	monthAgo := domain.DaysBefore(now, monthLookbackDays)

	snap := make(domain.Snapshot, len(catalog.USSeries)+1)
	for _, info := range catalog.USSeries {
		entry, err := seriesEntry(ctx, r, info, weekAgo, monthAgo)
		if err != nil {
			return nil, err
		}
		snap[info.ID] = entry
	}

	if nl, ok := netLiquidityEntry(snap, catalog.Label(domain.SeriesNetLiquidity)); ok {
		snap[domain.SeriesNetLiquidity] = nl
	}
	return snap, nil
}

func seriesEntry(ctx context.Context, r SnapshotReader, info domain.SeriesInfo, weekAgo, monthAgo string) (domain.SnapshotEntry, error) {
	entry := domain.SnapshotEntry{Label: info.Label}

	latest, err := r.Latest(ctx, info.ID, 1)
	if err != nil {
		return entry, fmt.Errorf("latest %s: %w", info.ID, err)
	}
	if len(latest) == 0 {
		return entry, nil
	}
	current := latest[0]
	entry.Current = null.FloatFrom(current.Value)
	entry.CurrentDate = current.Date

	week, ok, err := r.ValueOnOrBefore(ctx, info.ID, weekAgo)
	if err != nil {
		return entry, fmt.Errorf("week-ago %s: %w", info.ID, err)
	}
	if ok {
		entry.WeekAgo = null.FloatFrom(week.Value)
		entry.WeekChange = null.FloatFrom(current.Value - week.Value)
	}

	month, ok, err := r.ValueOnOrBefore(ctx, info.ID, monthAgo)
	if err != nil {
		return entry, fmt.Errorf("month-ago %s: %w", info.ID, err)
	}
	if ok {
		entry.MonthAgo = null.FloatFrom(month.Value)
		entry.MonthChange = null.FloatFrom(current.Value - month.Value)
	}
	return entry, nil
}

// netLiquidityEntry needs a current value for all three components. A
// reference point is only used when every component has it and none is zero.
func netLiquidityEntry(snap domain.Snapshot, label string) (domain.SnapshotEntry, bool) {
	fed := snap[domain.SeriesFedBalanceSheet]
	tga := snap[domain.SeriesTreasuryAccount]
	rrp := snap[domain.SeriesReverseRepo]
	if !fed.HasCurrent() || !tga.HasCurrent() || !rrp.HasCurrent() {
		return domain.SnapshotEntry{}, false
	}

	current := NetLiquidity(fed.Current.Float64, tga.Current.Float64, rrp.Current.Float64)
	entry := domain.SnapshotEntry{
		Label:       label,
		Current:     null.FloatFrom(current),
		CurrentDate: fed.CurrentDate,
	}

	if nonZero(fed.WeekAgo, tga.WeekAgo, rrp.WeekAgo) {
		week := NetLiquidity(fed.WeekAgo.Float64, tga.WeekAgo.Float64, rrp.WeekAgo.Float64)
		entry.WeekAgo = null.FloatFrom(week)
		entry.WeekChange = null.FloatFrom(current - week)
	}
	if nonZero(fed.MonthAgo, tga.MonthAgo, rrp.MonthAgo) {
		month := NetLiquidity(fed.MonthAgo.Float64, tga.MonthAgo.Float64, rrp.MonthAgo.Float64)
		entry.MonthAgo = null.FloatFrom(month)
		entry.MonthChange = null.FloatFrom(current - month)
	}
	return entry, true
}

func nonZero(vals ...null.Float) bool {
	for _, v := range vals {
		if !v.Valid || v.Float64 == 0 {
			return false
		}
	}
	return true
}
