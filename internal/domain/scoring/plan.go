package scoring

import (
	"math"
	"slices"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// Plan phases ordered by completion.
const (
	PhaseGettingStarted   = "getting_started"
	PhaseBuildingMomentum = "building_momentum"
	PhaseMakingProgress   = "making_progress"
	PhaseNearlyComplete   = "nearly_complete"
	PhaseCompleted        = "completed"
)

// MarkActionCompleted records actionID as done and recomputes the completion
// percentage against the current TotalActions, capped at 100. Completing the
// same action twice adds nothing.
func MarkActionCompleted(p *model.PlanProgress, actionID string) {
	if !slices.Contains(p.CompletedActionIDs, actionID) {
		p.CompletedActionIDs = append(p.CompletedActionIDs, actionID)
	}
	p.CompletionPercentage = math.Min(percent(float64(len(p.CompletedActionIDs)), float64(p.TotalActions)), maxScore)
}

// PlanPhase names the stage a plan has reached.
func PlanPhase(completionPercentage float64) string {
	switch {
	case completionPercentage < 25:
		return PhaseGettingStarted
	case completionPercentage < 50:
		return PhaseBuildingMomentum
	case completionPercentage < 75:
		return PhaseMakingProgress
	case completionPercentage < 100:
		return PhaseNearlyComplete
	default:
		return PhaseCompleted
	}
}
