package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"liquidity-monitor/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	fredBaseURL = "https://api.stlouisfed.org/fred/series/observations"

	// DefaultLookbackDays is roughly five years of weekly data.
	DefaultLookbackDays = 1900

	// fredMissingValue marks a missing observation in FRED responses.
	fredMissingValue = "."

	// FRED allows 120 requests per minute per key.
	fredBurst          = 10
	fredRefillInterval = 500 * time.Millisecond
)

// FREDProvider fetches series observations from the FRED API.
type FREDProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *RateLimiter
	tracer  trace.Tracer
	logger  *zap.Logger
	now     func() time.Time
}

// NewFREDProvider creates a FRED client. It fails with ErrMissingAPIKey when
// apiKey is empty.
func NewFREDProvider(apiKey string, tracer trace.Tracer, logger *zap.Logger) (*FREDProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("FRED_API_KEY not set (free key at https://fred.stlouisfed.org/docs/api/api_key.html): %w", ErrMissingAPIKey)
	}
	return &FREDProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: fredBaseURL,
		apiKey:  apiKey,
		limiter: NewRateLimiter(fredBurst, fredRefillInterval),
		tracer:  tracer,
		logger:  logger,
		now:     time.Now,
	}, nil
}

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FetchSeries returns the observations of one series since start (an ISO
// day). An empty start means DefaultLookbackDays ago. Missing values are
// skipped.
func (p *FREDProvider) FetchSeries(ctx context.Context, seriesID, start string) ([]domain.Point, error) {
	ctx, span := p.tracer.Start(ctx, "fred.fetch-series")
	defer span.End()

	if start == "" {
		start = domain.DaysBefore(p.now(), DefaultLookbackDays)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", p.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", start)
	params.Set("sort_order", "desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.Pause(retryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Provider: "fred", Status: resp.StatusCode, Body: string(body)}
	}

	var raw fredResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", seriesID, err)
	}

	points := make([]domain.Point, 0, len(raw.Observations))
	for _, obs := range raw.Observations {
		if obs.Value == fredMissingValue {
			continue
		}
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s value %q on %s: %w", seriesID, obs.Value, obs.Date, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("parse %s value %q on %s: not a finite number", seriesID, obs.Value, obs.Date)
		}
		points = append(points, domain.Point{Date: obs.Date, Value: v})
	}
	return points, nil
}

// FetchAll fetches each series. A failed series is logged and maps to an
// empty slice; its error is reported in the second return value.
func (p *FREDProvider) FetchAll(ctx context.Context, seriesIDs []string, start string) (map[string][]domain.Point, map[string]error) {
	ctx, span := p.tracer.Start(ctx, "fred.fetch-all")
	defer span.End()

	results := make(map[string][]domain.Point, len(seriesIDs))
	failures := make(map[string]error)
	for _, id := range seriesIDs {
		points, err := p.FetchSeries(ctx, id, start)
		if err != nil {
			p.logger.Warn("fred fetch failed", zap.String("series", id), zap.Error(err))
			results[id] = []domain.Point{}
			failures[id] = err
			continue
		}
		results[id] = points
	}
	return results, failures
}
