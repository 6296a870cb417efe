package scoring

// Performance levels shared by feedback categories and interviews.
const (
	PerformanceExcellent        = "excellent"
	PerformanceGood             = "good"
	PerformanceSatisfactory     = "satisfactory"
	PerformanceNeedsImprovement = "needs_improvement"
	PerformancePoor             = "poor"
)

// LetterGrade maps a 0-100 score to A, B, C, D or F.
func LetterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// PerformanceLevel maps a 0-100 score to its performance label using the
// same bands as LetterGrade.
func PerformanceLevel(score float64) string {
	switch {
	case score >= 90:
		return PerformanceExcellent
	case score >= 80:
		return PerformanceGood
	case score >= 70:
		return PerformanceSatisfactory
	case score >= 60:
		return PerformanceNeedsImprovement
	default:
		return PerformancePoor
	}
}
