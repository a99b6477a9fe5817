package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/observability"
	"liquidity-monitor/internal/provider"
	"liquidity-monitor/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrRefreshInProgress is returned when a refresh cycle is already running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

type FREDFetcher interface {
	FetchAll(ctx context.Context, seriesIDs []string, start string) (map[string][]domain.Point, map[string]error)
}

type CryptoFetcher interface {
	FetchAll(ctx context.Context, fetches []domain.CoinFetch) (map[string][]domain.Point, map[string]error)
	FetchGlobal(ctx context.Context) (*domain.GlobalMarket, error)
}

type GlobalCache interface {
	Get(ctx context.Context) (*domain.GlobalMarket, error)
	Set(ctx context.Context, gm *domain.GlobalMarket) error
}

// IngestService runs fetch-and-upsert cycles against the observation store.
type IngestService struct {
	tracer  trace.Tracer
	logger  *zap.Logger
	store   store.Writer
	fred    FREDFetcher
	crypto  CryptoFetcher
	cache   GlobalCache
	metrics *observability.Metrics
	catalog domain.Catalog

	refreshMu sync.Mutex

	globalMu   sync.RWMutex
	lastGlobal *domain.GlobalMarket

	now      func() time.Time
	newRunID func() string
}

// NewIngestService wires an ingest service. fred, crypto, cache and metrics
// may be nil; a nil fred makes FRED refreshes fail with ErrMissingAPIKey.
func NewIngestService(
	tracer trace.Tracer,
	logger *zap.Logger,
	w store.Writer,
	fred FREDFetcher,
	crypto CryptoFetcher,
	cache GlobalCache,
	metrics *observability.Metrics,
	catalog domain.Catalog,
) *IngestService {
	return &IngestService{
		tracer:   tracer,
		logger:   logger,
		store:    w,
		fred:     fred,
		crypto:   crypto,
		cache:    cache,
		metrics:  metrics,
		catalog:  catalog,
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
}

// FetchFRED refreshes every FRED series of the catalog.
func (s *IngestService) FetchFRED(ctx context.Context) (domain.RefreshResult, error) {
	return s.run(ctx, "ingest-service.fetch-fred", true, false)
}

// FetchCrypto refreshes every CoinGecko series and the global market snapshot.
func (s *IngestService) FetchCrypto(ctx context.Context) (domain.RefreshResult, error) {
	return s.run(ctx, "ingest-service.fetch-crypto", false, true)
}

// RefreshAll refreshes FRED and CoinGecko in one cycle.
func (s *IngestService) RefreshAll(ctx context.Context) (domain.RefreshResult, error) {
	return s.run(ctx, "ingest-service.refresh-all", true, true)
}

func (s *IngestService) run(ctx context.Context, spanName string, withFRED, withCrypto bool) (domain.RefreshResult, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	if withFRED && s.fred == nil {
		return domain.RefreshResult{}, provider.ErrMissingAPIKey
	}
	if !s.refreshMu.TryLock() {
		return domain.RefreshResult{}, ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	res := domain.RefreshResult{
		RunID:     s.newRunID(),
		Series:    make(map[string]domain.SeriesRefresh),
		StartedAt: s.now().UTC(),
	}
	span.SetAttributes(attribute.String("run_id", res.RunID))
	log := s.logger.With(zap.String("run_id", res.RunID))

	var err error
	if withFRED {
		ids := make([]string, 0, len(s.catalog.FREDSeries()))
		for _, info := range s.catalog.FREDSeries() {
			ids = append(ids, info.ID)
		}
		log.Info("fetching from FRED", zap.Int("series", len(ids)))
		results, failures := s.fred.FetchAll(ctx, ids, "")
		err = s.upsertAll(ctx, log, domain.SourceFRED, ids, results, failures, &res)
	}

	if err == nil && withCrypto && s.crypto != nil {
		var ids []string
		for _, fetch := range s.catalog.CryptoFetches {
			for _, f := range fetch.Fields {
				ids = append(ids, f.SeriesID)
			}
		}
		log.Info("fetching from CoinGecko", zap.Int("coins", len(s.catalog.CryptoFetches)))
		results, failures := s.crypto.FetchAll(ctx, s.catalog.CryptoFetches)
		err = s.upsertAll(ctx, log, domain.SourceCoinGecko, ids, results, failures, &res)
		if err == nil {
			res.Global = s.refreshGlobal(ctx, log)
		}
	}

	res.Duration = s.now().Sub(res.StartedAt)
	s.recordRun(res, err)
	if err != nil {
		return res, err
	}
	log.Info("refresh complete", zap.Int("upserted", res.Total), zap.Duration("duration", res.Duration))
	return res, nil
}

func (s *IngestService) upsertAll(
	ctx context.Context,
	log *zap.Logger,
	source string,
	ids []string,
	results map[string][]domain.Point,
	failures map[string]error,
	res *domain.RefreshResult,
) error {
	for _, id := range ids {
		points := results[id]
		entry := domain.SeriesRefresh{Source: source, Observations: len(points)}

		if ferr, failed := failures[id]; failed {
			entry.Error = ferr.Error()
			res.Series[id] = entry
			s.countFetch(source, "error", 0)
			continue
		}
		s.countFetch(source, "ok", len(points))

		n, err := s.store.Upsert(ctx, id, points)
		if err != nil {
			entry.Error = err.Error()
			res.Series[id] = entry
			return fmt.Errorf("upsert %s: %w", id, err)
		}
		entry.Upserted = n
		res.Series[id] = entry
		res.Total += n
		if s.metrics != nil {
			s.metrics.UpsertedTotal.WithLabelValues(id).Add(float64(n))
		}
		log.Info("series upserted",
			zap.String("series", id),
			zap.String("label", s.catalog.Label(id)),
			zap.Int("observations", len(points)),
			zap.Int("upserted", n),
		)
	}
	return nil
}

func (s *IngestService) refreshGlobal(ctx context.Context, log *zap.Logger) *domain.GlobalMarket {
	gm, err := s.crypto.FetchGlobal(ctx)
	if err != nil {
		log.Warn("failed to fetch global market stats", zap.Error(err))
		return nil
	}
	if gm == nil {
		return nil
	}

	s.globalMu.Lock()
	s.lastGlobal = gm
	s.globalMu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, gm); err != nil {
			log.Warn("redis cache write error", zap.Error(err))
		}
	}
	return gm
}

// LatestGlobal returns the newest global market snapshot known to this
// process: the Redis cache first, then the last one fetched here.
func (s *IngestService) LatestGlobal(ctx context.Context) *domain.GlobalMarket {
	if s.cache != nil {
		gm, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("redis cache read error", zap.Error(err))
		}
		if gm != nil {
			return gm
		}
	}

	s.globalMu.RLock()
	defer s.globalMu.RUnlock()
	return s.lastGlobal
}

func (s *IngestService) countFetch(source, outcome string, observations int) {
	if s.metrics == nil {
		return
	}
	s.metrics.FetchesTotal.WithLabelValues(source, outcome).Inc()
	s.metrics.ObservationsTotal.WithLabelValues(source).Add(float64(observations))
}

func (s *IngestService) recordRun(res domain.RefreshResult, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RefreshDuration.Observe(res.Duration.Seconds())
	if err != nil {
		s.metrics.RefreshRunsTotal.WithLabelValues("error").Inc()
		return
	}
	s.metrics.RefreshRunsTotal.WithLabelValues("ok").Inc()
	if res.Total > 0 {
		s.metrics.LastSuccessfulRefresh.Set(float64(res.StartedAt.Add(res.Duration).Unix()))
	}
}
