package fiber

import (
	"time"

	"funnel-service/internal/funnel/core/domain"
)

// Rates are null when their denominator is zero.
type FunnelResponse struct {
	QueryID    string `json:"query_id"`
	IndexID    string `json:"index_id"`
	StartEvent string `json:"start_event"`
	EndEvent   string `json:"end_event"`
	GapSec     int64  `json:"gap_sec"`

	TotalUsers      int   `json:"total_users"`
	TotalEventTypes int   `json:"total_event_types"`
	EventsScanned   int64 `json:"events_scanned"`

	StartCount     int64    `json:"start_count"`
	EndCount       int64    `json:"end_count"`
	CompletionRate *float64 `json:"completion_rate_pct"`
	TotalMatches   int64    `json:"total_matches"`
	MatchesPerUser *float64 `json:"matches_per_user"`
	MeanLatency    *float64 `json:"mean_latency_sec"`
	MedianLatency  int64    `json:"approx_median_latency_sec"`

	// Histogram[i] counts matches with latency of exactly i seconds.
	Histogram []int64 `json:"latency_histogram"`

	Workers int     `json:"workers"`
	LoadMs  float64 `json:"load_ms"`
	QueryMs float64 `json:"query_ms"`
	Created string  `json:"created_at"`
}

type IndexResponse struct {
	IndexID    string  `json:"index_id"`
	Users      int     `json:"users"`
	EventTypes int     `json:"event_types"`
	Events     int     `json:"events"`
	LoadMs     float64 `json:"load_ms"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_parameter"`
	Message string `json:"message" example:"invalid parameter \"gap\": must be >= 0"`
}

func toFunnelResponse(r *domain.FunnelReport) FunnelResponse {
	return FunnelResponse{
		QueryID:    r.QueryID,
		IndexID:    r.IndexID,
		StartEvent: r.StartEvent,
		EndEvent:   r.EndEvent,
		GapSec:     r.Gap,

		TotalUsers:      r.TotalUsers,
		TotalEventTypes: r.TotalEventTypes,
		EventsScanned:   r.EventsScanned,

		StartCount:     r.StartCount,
		EndCount:       r.EndCount,
		CompletionRate: r.CompletionRate,
		TotalMatches:   r.TotalMatches,
		MatchesPerUser: r.MatchesPerUser,
		MeanLatency:    r.MeanLatency,
		MedianLatency:  r.MedianLatency,

		Histogram: r.Histogram.Trimmed(),

		Workers: r.Workers,
		LoadMs:  millis(r.LoadDuration),
		QueryMs: millis(r.QueryDuration),
		Created: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
