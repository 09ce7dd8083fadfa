package domain

// ApproxMedian scans the histogram's cumulative counts and stops once they
// reach half the total. The returned value is the number of buckets consumed,
// i.e. one more than the index of the bucket that crossed the midpoint.
// Existing reports were produced with this 1-based convention, so it is kept.
// An empty histogram yields 0.
func ApproxMedian(h Histogram) int64 {
	midpoint := float64(h.Total()) / 2

	var cumulative, cursor int64
	for float64(cumulative) < midpoint {
		cumulative += h[cursor]
		cursor++
	}
	return cursor
}
