package model

import "time"

// RulePerformance holds measured accuracy for a single rule, rebuilt
// wholesale by the performance grader. A rule with no graded matches has no
// row; stale rows persist until the rule is re-graded.
type RulePerformance struct {
	ComputedAt     time.Time
	AccCategory    *float64
	AccSubcategory *float64
	AccProperty    *float64
	RuleID         string
	MatchCount     int
}

// MeasuredAccuracy averages the accuracy dimensions that have been measured.
// The second return is false when no dimension has been measured.
func (p RulePerformance) MeasuredAccuracy() (float64, bool) {
	var sum float64
	var n int
	for _, acc := range []*float64{p.AccCategory, p.AccSubcategory, p.AccProperty} {
		if acc != nil {
			sum += *acc
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
