package telemetry

import (
	"testing"
	"time"

	"funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/usecase"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func writeMetric(t *testing.T, c prometheus.Metric) *dto.Metric {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}
	return &m
}

func queriesWithStatus(t *testing.T, m *Metrics, status string) float64 {
	t.Helper()
	c, err := m.queriesTotal.GetMetricWithLabelValues(status)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%s): %v", status, err)
	}
	return writeMetric(t, c).GetCounter().GetValue()
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() returned error: %v", err)
		}

		m.QueryFailed(usecase.FailureInvalidParameter)

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() returned error: %v", err)
		}

		expected := map[string]bool{
			MetricQueriesTotal:       false,
			MetricQueryDuration:      false,
			MetricEventsScannedTotal: false,
			MetricMatchesTotal:       false,
			MetricIndexUsers:         false,
			MetricIndexEvents:        false,
			MetricIndexEventTypes:    false,
			MetricIndexLoadDuration:  false,
		}
		for _, family := range families {
			if _, ok := expected[family.GetName()]; ok {
				expected[family.GetName()] = true
			}
		}
		for name, found := range expected {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func TestMetrics_QueryCompleted(t *testing.T) {
	m := NewMetrics()

	r := &domain.FunnelReport{
		EventsScanned: 120,
		TotalMatches:  7,
		QueryDuration: 250 * time.Millisecond,
	}
	m.QueryCompleted(r, false)
	m.QueryCompleted(r, false)
	m.QueryCompleted(r, true)

	if got := queriesWithStatus(t, m, StatusSuccess); got != 2 {
		t.Errorf("expected 2 successful queries, got %v", got)
	}
	if got := queriesWithStatus(t, m, StatusCached); got != 1 {
		t.Errorf("expected 1 cached query, got %v", got)
	}

	// Cache'ten dönen sorgular toplamlara eklenmemeli.
	if got := writeMetric(t, m.eventsScanned).GetCounter().GetValue(); got != 240 {
		t.Errorf("expected 240 events scanned, got %v", got)
	}
	if got := writeMetric(t, m.matchesTotal).GetCounter().GetValue(); got != 14 {
		t.Errorf("expected 14 matches, got %v", got)
	}

	h := writeMetric(t, m.queryDuration).GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("expected 2 duration samples, got %d", h.GetSampleCount())
	}
	if h.GetSampleSum() != 0.5 {
		t.Errorf("expected duration sum 0.5, got %v", h.GetSampleSum())
	}
}

func TestMetrics_QueryFailed(t *testing.T) {
	m := NewMetrics()

	m.QueryFailed(usecase.FailureIndexNotLoaded)
	m.QueryFailed(usecase.FailureIndexNotLoaded)
	m.QueryFailed(usecase.FailureCanceled)

	if got := queriesWithStatus(t, m, usecase.FailureIndexNotLoaded); got != 2 {
		t.Errorf("expected 2 index_not_loaded failures, got %v", got)
	}
	if got := queriesWithStatus(t, m, usecase.FailureCanceled); got != 1 {
		t.Errorf("expected 1 canceled failure, got %v", got)
	}
}

func TestMetrics_IndexLoaded(t *testing.T) {
	m := NewMetrics()

	b := domain.NewIndexBuilder()
	b.Add(1, "a", 10)
	b.Add(1, "b", 12)
	b.Add(2, "a", 30)
	m.IndexLoaded(b.Build(), 1500*time.Millisecond)

	if got := writeMetric(t, m.indexUsers).GetGauge().GetValue(); got != 2 {
		t.Errorf("expected 2 users, got %v", got)
	}
	if got := writeMetric(t, m.indexEvents).GetGauge().GetValue(); got != 3 {
		t.Errorf("expected 3 events, got %v", got)
	}
	if got := writeMetric(t, m.indexEventTypes).GetGauge().GetValue(); got != 2 {
		t.Errorf("expected 2 event types, got %v", got)
	}
	if got := writeMetric(t, m.indexLoadDuration).GetGauge().GetValue(); got != 1.5 {
		t.Errorf("expected load duration 1.5, got %v", got)
	}
}
