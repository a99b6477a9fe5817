package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"liquidity-monitor/internal/domain"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	coingeckoBaseURL = "https://api.coingecko.com/api/v3"

	// MarketChartDays is the longest history the demo plan serves.
	MarketChartDays = 365

	globalTimeout = 15 * time.Second
)

// CoinGeckoProvider fetches market charts and global market stats from the
// CoinGecko API.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	logger  *zap.Logger
	limiter *RateLimiter
}

// NewCoinGeckoProvider creates a new provider with built-in rate limiting.
// Requests are spaced six seconds apart to stay inside the free tier.
// apiKey is optional; when set it is sent as a demo key.
func NewCoinGeckoProvider(apiKey string, tracer trace.Tracer, logger *zap.Logger) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: coingeckoBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
		logger:  logger,
		limiter: NewRateLimiter(1, 6*time.Second),
	}
}

// FetchCoin fetches one market_chart and extracts every field the catalog
// asks for, keyed by series id.
func (p *CoinGeckoProvider) FetchCoin(ctx context.Context, fetch domain.CoinFetch, days int) (map[string][]domain.Point, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-coin")
	defer span.End()

	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d", p.baseURL, fetch.CoinID, days)
	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch market chart for %s: %w", fetch.CoinID, err)
	}

	// Response shape: {"prices": [[ts_ms, v], ...], "market_caps": [...], "total_volumes": [...]}
	var raw map[string][][]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse market chart for %s: %w", fetch.CoinID, err)
	}

	out := make(map[string][]domain.Point, len(fetch.Fields))
	for _, f := range fetch.Fields {
		out[f.SeriesID] = dailyPoints(raw[f.Field])
	}
	return out, nil
}

// FetchAll fetches every coin of the catalog. A failed coin is logged and
// its series map to empty slices; the cycle continues.
func (p *CoinGeckoProvider) FetchAll(ctx context.Context, fetches []domain.CoinFetch) (map[string][]domain.Point, map[string]error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-all")
	defer span.End()

	results := make(map[string][]domain.Point)
	failures := make(map[string]error)
	for _, fetch := range fetches {
		series, err := p.FetchCoin(ctx, fetch, MarketChartDays)
		if err != nil {
			p.logger.Warn("coingecko fetch failed", zap.String("coin", fetch.CoinID), zap.Error(err))
			for _, f := range fetch.Fields {
				results[f.SeriesID] = []domain.Point{}
				failures[f.SeriesID] = err
			}
			continue
		}
		for id, points := range series {
			results[id] = points
		}
	}
	return results, failures
}

// FetchGlobal returns the current total market cap and BTC dominance. It
// returns nil without error when either figure is missing or zero.
func (p *CoinGeckoProvider) FetchGlobal(ctx context.Context) (*domain.GlobalMarket, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-global")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	body, err := p.doRequest(ctx, p.baseURL+"/global")
	if err != nil {
		return nil, fmt.Errorf("fetch global: %w", err)
	}

	total := gjson.GetBytes(body, "data.total_market_cap.usd").Float()
	btcPct := gjson.GetBytes(body, "data.market_cap_percentage.btc").Float()
	if total == 0 || btcPct == 0 {
		return nil, nil
	}
	return &domain.GlobalMarket{
		TotalMcap:  total,
		BTCMcapPct: btcPct,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.Pause(retryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Provider: "coingecko", Status: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}

// dailyPoints buckets [ts_ms, value] pairs by UTC day. The first value seen
// for a day wins.
func dailyPoints(raw [][]float64) []domain.Point {
	seen := make(map[string]struct{}, len(raw))
	out := make([]domain.Point, 0, len(raw))
	for _, pt := range raw {
		if len(pt) < 2 {
			continue
		}
		date := domain.FormatDate(time.UnixMilli(int64(pt[0])))
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		out = append(out, domain.Point{Date: date, Value: pt[1]})
	}
	return out
}
