package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "gridcap"

// Metrics holds the Prometheus counters, histograms, and gauges for one run.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsFetched    prometheus.Counter
	RowsMatched       *prometheus.CounterVec // labels: kind={exact,fallback,none}
	RowsUpdated       prometheus.Counter
	PlacemarksWritten prometheus.Counter
	ChangesPublished  prometheus.Counter
	RunDuration       prometheus.Histogram
	LastSuccess       prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss,evict}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates all run metrics on a dedicated registry. A CLI run is
// short-lived and pushes its registry instead of serving the default one.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_records_fetched_total",
			Help:      "Capacity records read from the E-REDES API.",
		}),
		RowsMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_matched_total",
			Help:      "Workbook rows by merge outcome.",
		}, []string{"kind"}),
		RowsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_updated_total",
			Help:      "Workbook rows whose capacity values changed.",
		}),
		PlacemarksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placemarks_written_total",
			Help:      "Placemarks written to KML/KMZ output.",
		}),
		ChangesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_published_total",
			Help:      "Change events written to the Kafka change feed.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete update run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	m.Registry.MustRegister(
		m.RecordsFetched,
		m.RowsMatched,
		m.RowsUpdated,
		m.PlacemarksWritten,
		m.ChangesPublished,
		m.RunDuration,
		m.LastSuccess,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// Push sends the registry to a Prometheus Pushgateway under job, replacing
// any metrics previously pushed for it.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
