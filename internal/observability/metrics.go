// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "liquidity_monitor"

// Metrics holds the Prometheus collectors of the application.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion metrics
	FetchesTotal      *prometheus.CounterVec
	ObservationsTotal *prometheus.CounterVec
	UpsertedTotal     *prometheus.CounterVec

	// Refresh cycle metrics
	RefreshDuration       prometheus.Histogram
	RefreshRunsTotal      *prometheus.CounterVec
	LastSuccessfulRefresh prometheus.Gauge

	// Derived metrics
	NetLiquidityMillions prometheus.Gauge
	ImpulseBillions      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a private
// registry, so multiple instances can coexist in tests.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}

	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,

		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "fetches_total",
			Help:      "Series fetches by source and outcome",
		}, []string{"source", "outcome"}),
		ObservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "observations_fetched_total",
			Help:      "Observations received from upstream APIs by source",
		}, []string{"source"}),
		UpsertedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rows_upserted_total",
			Help:      "Rows written by upsert, by series",
		}, []string{"series_id"}),

		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Duration of a full fetch and upsert cycle",
			Buckets:   []float64{5, 15, 30, 60, 120, 300},
		}),
		RefreshRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Refresh cycles by status",
		}, []string{"status"}),
		LastSuccessfulRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last refresh cycle that stored data",
		}),

		NetLiquidityMillions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derived",
			Name:      "net_liquidity_millions",
			Help:      "Latest net liquidity in millions of USD",
		}),
		ImpulseBillions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "derived",
			Name:      "impulse_billions",
			Help:      "30-day net liquidity change in billions of USD",
		}),
	}

	reg.MustRegister(
		m.FetchesTotal,
		m.ObservationsTotal,
		m.UpsertedTotal,
		m.RefreshDuration,
		m.RefreshRunsTotal,
		m.LastSuccessfulRefresh,
		m.NetLiquidityMillions,
		m.ImpulseBillions,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
