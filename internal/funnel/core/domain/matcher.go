package domain

// MatchPair is one accepted (start, end) pairing with Start <= End <= Start+gap.
type MatchPair struct {
	Start int64
	End   int64
}

// Latency is the number of seconds between the paired events.
func (p MatchPair) Latency() int64 {
	return p.End - p.Start
}

// MatchResult is the outcome of matching one user's series.
type MatchResult struct {
	Pairs         []MatchPair
	Matched       bool
	StartsScanned int
	EndsScanned   int
}

// MatchSequences pairs start timestamps with end timestamps that follow them
// within gap seconds. Both series must be non-decreasing.
func MatchSequences(starts, ends TimestampSeries, gap int64) MatchResult {
	return AppendMatches(nil, starts, ends, gap)
}

// AppendMatches is MatchSequences appending pairs to dst, so callers folding
// many users can reuse one buffer.
//
// Two cursors walk the series. An end that precedes the current start is
// dropped; a start more than gap before the current end is dropped. When the
// current start is within gap of the end, a later start that also qualifies
// takes precedence, so each end binds to the closest start before it. An
// accepted pair only advances the end cursor: one start may cover several ends.
func AppendMatches(dst []MatchPair, starts, ends TimestampSeries, gap int64) MatchResult {
	res := MatchResult{
		Pairs:         dst,
		StartsScanned: len(starts),
		EndsScanned:   len(ends),
	}

	i, j := 0, 0
	for i < len(starts) && j < len(ends) {
		s, e := starts[i], ends[j]

		if s > e {
			j++
			continue
		}
		if e-s > gap {
			i++
			continue
		}
		if i+1 < len(starts) {
			if next := starts[i+1]; next <= e && e-next <= gap {
				i++
				continue
			}
		}

		res.Pairs = append(res.Pairs, MatchPair{Start: s, End: e})
		res.Matched = true
		j++
	}

	return res
}
