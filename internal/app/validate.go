package service

import (
	"fmt"
	"strings"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// Validate rejects events the scoring core must never see: missing
// aggregate ids, negative counts and out-of-range levels.
func Validate(e *model.Event) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if problem := check(e); problem != "" {
		return fmt.Errorf("%w: %s: %s", ErrInvalidEvent, e.Kind, problem)
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func outOfRange(v float64) bool { return v < 0 || v > 100 }

func negative(v *float64) bool { return v != nil && *v < 0 }

//nolint:gocyclo // one case per kind
func check(e *model.Event) string {
	switch e.Kind {
	case model.KindQuestionAttempt:
		switch {
		case blank(e.QuestionID):
			return "question_id is required"
		case negative(e.TimeTakenSeconds):
			return "time_taken_seconds must not be negative"
		}
	case model.KindTestStarted:
		if blank(e.TestID) {
			return "test_id is required"
		}
	case model.KindTestCompleted:
		switch {
		case blank(e.TestID):
			return "test_id is required"
		case outOfRange(e.PercentageScore):
			return "percentage_score must be within [0,100]"
		case outOfRange(e.PassingScore):
			return "passing_score must be within [0,100]"
		case negative(e.DurationSeconds):
			return "duration_seconds must not be negative"
		}
	case model.KindSubmissionResult:
		switch {
		case blank(e.ChallengeID):
			return "challenge_id is required"
		case blank(e.SubmissionID):
			return "submission_id is required"
		case e.TotalCases < 0 || e.PassedCases < 0:
			return "case counts must not be negative"
		case e.PassedCases > e.TotalCases:
			return "passed_cases exceeds total_cases"
		case e.MaxScore < 0:
			return "max_score must not be negative"
		case negative(e.ExecutionTimeSeconds):
			return "execution_time_seconds must not be negative"
		case e.MemoryUsageKB != nil && *e.MemoryUsageKB < 0:
			return "memory_usage_kb must not be negative"
		}
	case model.KindSkillObservation:
		switch {
		case blank(e.UserID) || blank(e.Skill):
			return "user_id and skill are required"
		case outOfRange(e.Level):
			return "level must be within [0,100]"
		}
	case model.KindPracticeLogged:
		switch {
		case blank(e.UserID) || blank(e.Skill):
			return "user_id and skill are required"
		case e.Minutes < 0:
			return "minutes must not be negative"
		}
	case model.KindInterviewEvaluation:
		if blank(e.SessionID) {
			return "session_id is required"
		}
		for _, v := range []*float64{e.Clarity, e.Relevance, e.Depth, e.Confidence} {
			if v != nil && outOfRange(*v) {
				return "sub-scores must be within [0,100]"
			}
		}
	case model.KindCategoryScore:
		switch {
		case blank(e.FeedbackID):
			return "feedback_id is required"
		case blank(e.Category):
			return "category is required"
		case outOfRange(e.Score):
			return "score must be within [0,100]"
		case e.CategoryConfidence != nil && (*e.CategoryConfidence < 0 || *e.CategoryConfidence > 1):
			return "confidence must be within [0,1]"
		}
	case model.KindPlanActionCompleted:
		switch {
		case blank(e.PlanID):
			return "plan_id is required"
		case blank(e.ActionID):
			return "action_id is required"
		case e.TotalActions < 0:
			return "total_actions must not be negative"
		}
	}
	return ""
}
