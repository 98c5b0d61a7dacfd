package retrieval

import "github.com/kailas-cloud/lorekeeper/internal/domain/search/result"

// GapThreshold is the distance jump treated as a semantic cliff.
const GapThreshold = 0.06

// Cutoff is the outcome of SelectCutoff.
type Cutoff struct {
	Keep        int
	Strategy    result.CutoffStrategy
	GapPosition int
	Gap         float64
	// Limit is the absolute distance bound used by the threshold strategy.
	Limit float64
}

// SelectCutoff decides how many leading hits to keep.
//
// Gaps are measured from position 2 onward (the gap after the best hit is
// ignored). The largest gap, first on ties, cuts the list when it reaches
// GapThreshold. Otherwise the leading run within threshold of the best
// distance is kept. The result is at least min(2, len) and at most min(k, len).
func SelectCutoff(distances []float64, k int, threshold float64) Cutoff {
	n := len(distances)
	if n == 0 {
		return Cutoff{Strategy: result.CutoffNone}
	}

	c := Cutoff{}
	found := false
	for i := 2; i < min(n, k); i++ {
		gap := distances[i] - distances[i-1]
		if !found || gap > c.Gap {
			c.GapPosition, c.Gap, found = i, gap, true
		}
	}

	if found && c.Gap >= GapThreshold {
		c.Keep = c.GapPosition
		c.Strategy = result.CutoffGap
	} else {
		c.Limit = distances[0] + threshold
		c.Keep = 1
		for i := 1; i < n && distances[i] <= c.Limit; i++ {
			c.Keep++
		}
		c.Strategy = result.CutoffThreshold
	}

	c.Keep = max(c.Keep, min(2, n))
	c.Keep = min(c.Keep, k, n)
	return c
}
