package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/liquidity"
	"liquidity-monitor/internal/observability"
	"liquidity-monitor/internal/series"
	"liquidity-monitor/internal/store"

	"github.com/guregu/null/v6"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryWindow is the number of most recent rows loaded per series.
	DefaultHistoryWindow = 2000
	// ReportHistoryWindow is the net liquidity window of the terminal views.
	ReportHistoryWindow = 90

	summaryMonthPoints = 30
	summaryWeekPoints  = 4
)

// ErrUnknownHistory is returned for a history name the service does not derive.
var ErrUnknownHistory = errors.New("unknown history")

// History names accepted by MetricsService.History.
const (
	HistoryNetLiquidity    = "net_liquidity"
	HistoryGlobalLiquidity = "global_liquidity"
	HistoryStablecoins     = "stablecoins"
	HistoryAltcoins        = "altcoins"
	HistoryBTC             = "btc"
	HistoryETH             = "eth"
	HistoryConditions      = "nfci"
)

// HistoryNames lists every name accepted by MetricsService.History.
var HistoryNames = []string{
	HistoryNetLiquidity, HistoryGlobalLiquidity, HistoryStablecoins,
	HistoryAltcoins, HistoryBTC, HistoryETH, HistoryConditions,
}

type GlobalSource interface {
	LatestGlobal(ctx context.Context) *domain.GlobalMarket
}

// MetricsService reads stored series and derives every presented metric.
type MetricsService struct {
	tracer  trace.Tracer
	logger  *zap.Logger
	reader  store.Reader
	global  GlobalSource
	metrics *observability.Metrics
	catalog domain.Catalog
	window  int
	now     func() time.Time
}

// NewMetricsService wires a metrics service. global and metrics may be nil;
// window <= 0 selects DefaultHistoryWindow.
func NewMetricsService(
	tracer trace.Tracer,
	logger *zap.Logger,
	reader store.Reader,
	global GlobalSource,
	metrics *observability.Metrics,
	catalog domain.Catalog,
	window int,
) *MetricsService {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &MetricsService{
		tracer:  tracer,
		logger:  logger,
		reader:  reader,
		global:  global,
		metrics: metrics,
		catalog: catalog,
		window:  window,
		now:     time.Now,
	}
}

// Snapshot returns the current snapshot of the US series plus net liquidity.
func (s *MetricsService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "metrics-service.snapshot")
	defer span.End()

	return liquidity.BuildSnapshot(ctx, s.reader, s.catalog, s.now())
}

// NetLiquidityHistory returns the net liquidity history, in millions, over
// the most recent window rows of each component.
func (s *MetricsService) NetLiquidityHistory(ctx context.Context, window int) ([]domain.Point, error) {
	ctx, span := s.tracer.Start(ctx, "metrics-service.net-liquidity-history")
	defer span.End()

	loaded, err := s.load(ctx, window,
		domain.SeriesFedBalanceSheet, domain.SeriesTreasuryAccount, domain.SeriesReverseRepo)
	if err != nil {
		return nil, err
	}
	return liquidity.NetLiquidityHistory(
		loaded[domain.SeriesFedBalanceSheet],
		loaded[domain.SeriesTreasuryAccount],
		loaded[domain.SeriesReverseRepo],
	), nil
}

// History returns one named derived history as rendered on the dashboard.
func (s *MetricsService) History(ctx context.Context, name string) ([]domain.Point, error) {
	if !slices.Contains(HistoryNames, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHistory, name)
	}
	d, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	switch name {
	case HistoryNetLiquidity:
		return d.NetLiquidity, nil
	case HistoryGlobalLiquidity:
		return d.GlobalLiquidity, nil
	case HistoryStablecoins:
		return d.Stablecoins, nil
	case HistoryAltcoins:
		return d.Altcoins, nil
	case HistoryBTC:
		return d.BTC, nil
	case HistoryETH:
		return d.ETH, nil
	default:
		return d.Conditions, nil
	}
}

// Dashboard derives the full dashboard from the stored series.
func (s *MetricsService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "metrics-service.dashboard")
	defer span.End()

	now := s.now()
	snap, err := liquidity.BuildSnapshot(ctx, s.reader, s.catalog, now)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	loaded, err := s.load(ctx, s.window, s.seriesIDs()...)
	if err != nil {
		return nil, err
	}

	var gm *domain.GlobalMarket
	if s.global != nil {
		gm = s.global.LatestGlobal(ctx)
	}

	fed := loaded[domain.SeriesFedBalanceSheet]
	netLiq := liquidity.NetLiquidityHistory(fed, loaded[domain.SeriesTreasuryAccount], loaded[domain.SeriesReverseRepo])
	impulse := liquidity.ComputeImpulse(netLiq)

	stableOthers := make([]series.Series, 0, len(s.catalog.Stablecoins))
	var stableBase series.Series
	for i, id := range s.catalog.Stablecoins {
		if i == 0 {
			stableBase = loaded[id]
			continue
		}
		stableOthers = append(stableOthers, loaded[id])
	}

	basket := make([]series.Series, 0, len(s.catalog.AltBasket))
	for _, id := range s.catalog.AltBasket {
		basket = append(basket, loaded[id])
	}

	global := liquidity.GlobalLiquidityHistory(fed, loaded[domain.SeriesECBBalanceSheet], loaded[domain.SeriesEURUSD])
	alts := liquidity.AltcoinHistory(loaded[s.catalog.AltAnchor], basket, gm, loaded[domain.SeriesBTCMcap])

	d := &domain.Dashboard{
		Table:           s.tableRows(snap),
		Snapshot:        snap,
		NetLiquidity:    scaleHistory(netLiq, 1e6, 4),
		GlobalLiquidity: global,
		Stablecoins:     liquidity.StablecoinHistory(stableBase, stableOthers...),
		Altcoins:        alts,
		BTC:             liquidity.RoundedHistory(loaded[domain.SeriesBTCPrice], 2),
		ETH:             liquidity.RoundedHistory(loaded[domain.SeriesETHPrice], 2),
		Conditions:      liquidity.RoundedHistory(loaded[domain.SeriesFinConditions], 2),
		Impulse:         impulse,
		Regime:          liquidity.ClassifyRegime(impulse),
		GeneratedAt:     now.UTC().Format(domain.GeneratedAtLayout),
	}
	d.Summary = buildSummary(snap, d)

	s.observe(d)
	return d, nil
}

func (s *MetricsService) seriesIDs() []string {
	ids := []string{
		domain.SeriesFedBalanceSheet, domain.SeriesTreasuryAccount, domain.SeriesReverseRepo,
		domain.SeriesECBBalanceSheet, domain.SeriesEURUSD, domain.SeriesFinConditions,
		domain.SeriesBTCPrice, domain.SeriesETHPrice, domain.SeriesBTCMcap,
		s.catalog.AltAnchor,
	}
	ids = append(ids, s.catalog.AltBasket...)
	return append(ids, s.catalog.Stablecoins...)
}

func (s *MetricsService) load(ctx context.Context, window int, ids ...string) (map[string]series.Series, error) {
	out := make(map[string]series.Series, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, done := out[id]; done {
			continue
		}
		points, err := s.reader.History(ctx, id, window)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", id, err)
		}
		out[id] = series.FromPoints(points)
	}
	return out, nil
}

func (s *MetricsService) tableRows(snap domain.Snapshot) []domain.TableRow {
	rows := make([]domain.TableRow, 0, len(s.catalog.DisplayOrder))
	for _, id := range s.catalog.DisplayOrder {
		entry, ok := snap[id]
		if !ok || !entry.HasCurrent() {
			continue
		}
		divisor := s.catalog.UnitFor(id).Divisor
		rows = append(rows, domain.TableRow{
			SeriesID:    id,
			Label:       entry.Label,
			Current:     liquidity.Round(entry.Current.Float64/divisor, 4),
			CurrentDate: entry.CurrentDate,
			WeekChange:  toBillions(entry.WeekChange, divisor),
			MonthChange: toBillions(entry.MonthChange, divisor),
		})
	}
	return rows
}

func (s *MetricsService) observe(d *domain.Dashboard) {
	if s.metrics == nil {
		return
	}
	if entry, ok := d.Snapshot[domain.SeriesNetLiquidity]; ok && entry.HasCurrent() {
		s.metrics.NetLiquidityMillions.Set(entry.Current.Float64)
	}
	if d.Impulse != nil {
		s.metrics.ImpulseBillions.Set(d.Impulse.ChangeBillions)
	}
}

// toBillions converts a change in native units to billions.
func toBillions(v null.Float, divisor float64) null.Float {
	if !v.Valid {
		return null.Float{}
	}
	return null.FloatFrom(liquidity.Round(v.Float64/(divisor/1000), 1))
}

func scaleHistory(points []domain.Point, divisor float64, places int32) []domain.Point {
	out := make([]domain.Point, 0, len(points))
	for _, p := range points {
		out = append(out, domain.Point{Date: p.Date, Value: liquidity.Round(p.Value/divisor, places)})
	}
	return out
}

func buildSummary(snap domain.Snapshot, d *domain.Dashboard) domain.Summary {
	var sum domain.Summary

	if nl, ok := snap[domain.SeriesNetLiquidity]; ok && nl.HasCurrent() {
		sum.NetLiquidity = null.FloatFrom(liquidity.Round(nl.Current.Float64/1e6, 3))
	}

	if cur, ok := last(d.BTC); ok {
		sum.BTCPrice = null.FloatFrom(liquidity.Round(cur, 0))
		sum.BTC30dPct = pctBack(d.BTC, summaryMonthPoints)
	}
	if cur, ok := last(d.ETH); ok {
		sum.ETHPrice = null.FloatFrom(liquidity.Round(cur, 0))
		sum.ETH30dPct = pctBack(d.ETH, summaryMonthPoints)
	}
	if cur, ok := last(d.Stablecoins); ok {
		sum.StablecoinTotal = null.FloatFrom(liquidity.Round(cur, 1))
		if prev, ok := back(d.Stablecoins, summaryMonthPoints); ok {
			sum.Stablecoin30dChange = null.FloatFrom(liquidity.Round(cur-prev, 1))
		}
	}
	if cur, ok := last(d.GlobalLiquidity); ok {
		sum.GlobalLiquidity = null.FloatFrom(cur)
		sum.Global30dPct = pctBack(d.GlobalLiquidity, summaryWeekPoints)
	}
	if cur, ok := last(d.Altcoins); ok {
		sum.AltcoinMcap = null.FloatFrom(liquidity.Round(cur, 1))
		sum.Altcoin30dPct = pctBack(d.Altcoins, summaryMonthPoints)
	}
	if cur, ok := last(d.Conditions); ok {
		sum.FinancialConditions = null.FloatFrom(cur)
	}
	return sum
}

func last(points []domain.Point) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	return points[len(points)-1].Value, true
}

// back returns the value n points before the latest, when the history has
// more than n points.
func back(points []domain.Point, n int) (float64, bool) {
	if len(points) <= n {
		return 0, false
	}
	return points[len(points)-1-n].Value, true
}

// pctBack is the percent change against the value n points back, rounded to
// one decimal. A zero reference yields 0.
func pctBack(points []domain.Point, n int) null.Float {
	prev, ok := back(points, n)
	if !ok {
		return null.Float{}
	}
	cur, _ := last(points)
	if prev == 0 {
		return null.FloatFrom(0)
	}
	return null.FloatFrom(liquidity.Round((cur-prev)/prev*100, 1))
}
