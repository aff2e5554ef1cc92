package reward

import "math"

// DefaultBaseRate is the maximum compensation, in credits, for a single
// accepted update. Paid in full only for a maximally stale, maximally
// relevant record.
const DefaultBaseRate = 10.0

// Compensation converts staleness and relevance into a credit amount:
// baseRate x staleness x relevance, rounded to two decimal places. Both
// factors are clamped to [0, 1] first, so the result is bounded in
// [0, baseRate] and is zero whenever either factor is zero. Updating stale,
// popular records pays the most; touching fresh or obscure ones pays little
// or nothing.
func Compensation(baseRate, staleness, relevance float64) float64 {
	amount := baseRate * clamp01(staleness) * clamp01(relevance)
	return math.Round(amount*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
