// Package telemetry exports funnel query and index metrics to Prometheus.
package telemetry

import (
	"time"

	"funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/ports"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricQueriesTotal       = "funnel_queries_total"
	MetricQueryDuration      = "funnel_query_duration_seconds"
	MetricEventsScannedTotal = "funnel_events_scanned_total"
	MetricMatchesTotal       = "funnel_matches_total"
	MetricIndexUsers         = "funnel_index_users"
	MetricIndexEvents        = "funnel_index_events"
	MetricIndexEventTypes    = "funnel_index_event_types"
	MetricIndexLoadDuration  = "funnel_index_load_duration_seconds"
)

// Status label values besides the usecase failure reasons.
const (
	StatusSuccess = "success"
	StatusCached  = "cached"
)

// Metrics implements ports.QueryObserver. All operations are thread-safe.
type Metrics struct {
	queriesTotal      *prometheus.CounterVec
	queryDuration     prometheus.Histogram
	eventsScanned     prometheus.Counter
	matchesTotal      prometheus.Counter
	indexUsers        prometheus.Gauge
	indexEvents       prometheus.Gauge
	indexEventTypes   prometheus.Gauge
	indexLoadDuration prometheus.Gauge
}

var _ ports.QueryObserver = (*Metrics)(nil)

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricQueriesTotal,
				Help: "Total number of funnel queries by outcome",
			},
			[]string{"status"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricQueryDuration,
				Help:    "Histogram of uncached funnel query duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		),
		eventsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricEventsScannedTotal,
			Help: "Total number of timestamps walked by the sequence matcher",
		}),
		matchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMatchesTotal,
			Help: "Total number of accepted start/end match pairs",
		}),
		indexUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexUsers,
			Help: "Distinct users in the loaded event index",
		}),
		indexEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexEvents,
			Help: "Events in the loaded event index",
		}),
		indexEventTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexEventTypes,
			Help: "Distinct event types in the loaded event index",
		}),
		indexLoadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIndexLoadDuration,
			Help: "Seconds spent building the loaded event index",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) IndexLoaded(ix *domain.EventIndex, took time.Duration) {
	m.indexUsers.Set(float64(ix.UserCount()))
	m.indexEvents.Set(float64(ix.EventCount()))
	m.indexEventTypes.Set(float64(ix.EventTypeCount()))
	m.indexLoadDuration.Set(took.Seconds())
}

// QueryCompleted counts cached answers but only times and sums real runs.
func (m *Metrics) QueryCompleted(r *domain.FunnelReport, cached bool) {
	if cached {
		m.queriesTotal.WithLabelValues(StatusCached).Inc()
		return
	}
	m.queriesTotal.WithLabelValues(StatusSuccess).Inc()
	m.queryDuration.Observe(r.QueryDuration.Seconds())
	m.eventsScanned.Add(float64(r.EventsScanned))
	m.matchesTotal.Add(float64(r.TotalMatches))
}

func (m *Metrics) QueryFailed(reason string) {
	m.queriesTotal.WithLabelValues(reason).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.queriesTotal,
		m.queryDuration,
		m.eventsScanned,
		m.matchesTotal,
		m.indexUsers,
		m.indexEvents,
		m.indexEventTypes,
		m.indexLoadDuration,
	}
}
