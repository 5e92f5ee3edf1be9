package service

// PerformanceTier bands a student's average quiz score for display.
type PerformanceTier string

const (
	TierExcellent    PerformanceTier = "excellent"
	TierGood         PerformanceTier = "good"
	TierAverage      PerformanceTier = "average"
	TierBelowAverage PerformanceTier = "below_average"
	TierNeedsHelp    PerformanceTier = "needs_help"
)

// TierFor maps an average score to its tier; a missing score needs help.
func TierFor(score *float64) PerformanceTier {
	if score == nil {
		return TierNeedsHelp
	}
	switch s := *score; {
	case s >= 90:
		return TierExcellent
	case s >= 80:
		return TierGood
	case s >= 70:
		return TierAverage
	case s >= 60:
		return TierBelowAverage
	default:
		return TierNeedsHelp
	}
}
