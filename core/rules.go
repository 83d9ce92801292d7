package core

import "math"

// Qualifies reports whether the metric the badge is gated on has reached its
// threshold.
func (b Badge) Qualifies(m UserMetrics) bool {
	return m.Get(b.RequirementCode) >= b.RequirementValue
}

// Progress is min(100, round(value / threshold * 100)). A non-positive
// threshold counts as complete.
func (b Badge) Progress(m UserMetrics) int {
	if b.RequirementValue <= 0 {
		return 100
	}
	p := math.Round(m.Get(b.RequirementCode) / b.RequirementValue * 100)
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}
