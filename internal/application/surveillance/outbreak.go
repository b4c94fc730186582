package surveillance

// OutbreakPolicy decides whether a facility's positive count in the
// current window stands out against its own history. The exact baseline
// span and multiplier are policy, not physics, so the rule is swappable.
type OutbreakPolicy interface {
	// Flag returns the threshold that was exceeded, or (0, false)
	Flag(current int, baseline float64) (threshold float64, flagged bool)
}

// BaselineMultiplierPolicy flags a facility when current positives exceed
// multiplier x the mean positives of the trailing baseline windows
type BaselineMultiplierPolicy struct {
	Multiplier float64
	// MinCases suppresses flags on tiny absolute counts
	MinCases int
}

func (p BaselineMultiplierPolicy) Flag(current int, baseline float64) (float64, bool) {
	min := p.MinCases
	if min <= 0 {
		min = 3
	}
	if current < min {
		return 0, false
	}
	if baseline <= 0 {
		// no history at all: any count at or above MinCases is notable
		return float64(min), true
	}
	threshold := baseline * p.Multiplier
	return threshold, float64(current) > threshold
}
