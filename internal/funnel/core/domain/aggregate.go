package domain

import (
	"errors"
	"fmt"
)

var ErrHistogramMismatch = errors.New("histogram size mismatch")

// Histogram counts matches by exact latency: bucket d holds matches that took d seconds.
type Histogram []int64

func NewHistogram(gap int64) Histogram {
	return make(Histogram, gap+1)
}

// Total is the number of matches recorded in the histogram.
func (h Histogram) Total() int64 {
	var total int64
	for _, c := range h {
		total += c
	}
	return total
}

// Trimmed drops trailing empty buckets.
func (h Histogram) Trimmed() Histogram {
	n := len(h)
	for n > 0 && h[n-1] == 0 {
		n--
	}
	return h[:n]
}

// Aggregate accumulates per-user match outcomes for a single funnel query.
// All fields are plain counters and sums, so partial aggregates over disjoint
// user sets can be merged in any order.
type Aggregate struct {
	Gap           int64
	StartCount    int64
	EndCount      int64
	TotalMatches  int64
	LatencySum    int64
	EventsScanned int64
	Histogram     Histogram

	scratch []MatchPair
}

func NewAggregate(gap int64) *Aggregate {
	return &Aggregate{
		Gap:       gap,
		Histogram: NewHistogram(gap),
	}
}

// Fold matches one user's series and adds the outcome to the totals.
// A user counts as a start as soon as the start series is non-empty, whether
// or not anything matched. Users without an end series are not scanned, so
// their start events are left out of EventsScanned as well.
func (a *Aggregate) Fold(starts, ends TimestampSeries) {
	if len(starts) == 0 {
		return
	}
	a.StartCount++

	if len(ends) == 0 {
		return
	}

	res := AppendMatches(a.scratch[:0], starts, ends, a.Gap)
	a.scratch = res.Pairs

	a.EventsScanned += int64(res.StartsScanned + res.EndsScanned)
	for _, p := range res.Pairs {
		d := p.Latency()
		a.TotalMatches++
		a.LatencySum += d
		a.Histogram[d]++
	}
	if res.Matched {
		a.EndCount++
	}
}

// Merge adds other's totals into a. Both must have been created for the same gap.
func (a *Aggregate) Merge(other *Aggregate) error {
	if len(a.Histogram) != len(other.Histogram) {
		return fmt.Errorf("%w: %d vs %d buckets", ErrHistogramMismatch, len(a.Histogram), len(other.Histogram))
	}

	a.StartCount += other.StartCount
	a.EndCount += other.EndCount
	a.TotalMatches += other.TotalMatches
	a.LatencySum += other.LatencySum
	a.EventsScanned += other.EventsScanned
	for d, c := range other.Histogram {
		a.Histogram[d] += c
	}
	return nil
}
