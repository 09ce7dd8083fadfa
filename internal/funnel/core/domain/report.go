package domain

import "time"

// FunnelReport is the finished, read-only result of one funnel query.
type FunnelReport struct {
	QueryID    string
	IndexID    string
	StartEvent string
	EndEvent   string
	Gap        int64

	TotalUsers      int
	TotalEventTypes int
	EventsScanned   int64

	StartCount   int64 // users with at least one start event
	EndCount     int64 // users with at least one accepted match
	TotalMatches int64
	LatencySum   int64
	Histogram    Histogram

	// Derived values. nil means "not applicable" (zero denominator).
	CompletionRate *float64 // percent of StartCount
	MatchesPerUser *float64
	MeanLatency    *float64
	MedianLatency  int64

	Workers       int
	LoadDuration  time.Duration
	QueryDuration time.Duration
	CreatedAt     time.Time
}

// ReportMeta carries the query description that the aggregate does not know.
type ReportMeta struct {
	QueryID       string
	StartEvent    string
	EndEvent      string
	Workers       int
	LoadDuration  time.Duration
	QueryDuration time.Duration
	CreatedAt     time.Time
}

// BuildReport freezes an aggregate into a report for the given index.
func BuildReport(meta ReportMeta, ix *EventIndex, agg *Aggregate) *FunnelReport {
	return &FunnelReport{
		QueryID:    meta.QueryID,
		IndexID:    ix.ID(),
		StartEvent: meta.StartEvent,
		EndEvent:   meta.EndEvent,
		Gap:        agg.Gap,

		TotalUsers:      ix.UserCount(),
		TotalEventTypes: ix.EventTypeCount(),
		EventsScanned:   agg.EventsScanned,

		StartCount:   agg.StartCount,
		EndCount:     agg.EndCount,
		TotalMatches: agg.TotalMatches,
		LatencySum:   agg.LatencySum,
		Histogram:    agg.Histogram,

		CompletionRate: ratio(agg.EndCount, agg.StartCount, 100),
		MatchesPerUser: ratio(agg.TotalMatches, agg.EndCount, 1),
		MeanLatency:    ratio(agg.LatencySum, agg.TotalMatches, 1),
		MedianLatency:  ApproxMedian(agg.Histogram),

		Workers:       meta.Workers,
		LoadDuration:  meta.LoadDuration,
		QueryDuration: meta.QueryDuration,
		CreatedAt:     meta.CreatedAt,
	}
}

func ratio(num, den int64, scale float64) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) * scale / float64(den)
	return &v
}
