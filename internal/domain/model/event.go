// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Kind discriminates the graded event types accepted by the pipeline.
type Kind string

// Supported event kinds.
const (
	KindQuestionAttempt     Kind = "question_attempt"
	KindTestStarted         Kind = "test_started"
	KindTestCompleted       Kind = "test_completed"
	KindSubmissionResult    Kind = "submission_result"
	KindSkillObservation    Kind = "skill_observation"
	KindPracticeLogged      Kind = "practice_logged"
	KindInterviewEvaluation Kind = "interview_evaluation"
	KindCategoryScore       Kind = "category_score"
	KindPlanActionCompleted Kind = "plan_action_completed"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{
	KindQuestionAttempt,
	KindTestStarted,
	KindTestCompleted,
	KindSubmissionResult,
	KindSkillObservation,
	KindPracticeLogged,
	KindInterviewEvaluation,
	KindCategoryScore,
	KindPlanActionCompleted,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is one graded unit of work submitted by clients. Only the fields
// relevant to Kind are read; the rest stay zero. Events are immutable once
// accepted.
type Event struct {
	EventID string    // unique id for idempotency
	Kind    Kind      // discriminator
	TS      time.Time // observation time
	UserID  string    // owning user, when known

	// Aggregate identifiers.
	QuestionID   string
	TestID       string
	ChallengeID  string
	SubmissionID string
	SessionID    string
	FeedbackID   string
	PlanID       string
	Skill        string

	// question_attempt
	Correct          bool
	TimeTakenSeconds *float64

	// test_completed
	PercentageScore float64
	PassingScore    float64
	DurationSeconds *float64

	// submission_result
	TotalCases  int
	PassedCases int
	MaxScore    float64
	// Optional judge resource usage.
	ExecutionTimeSeconds *float64
	MemoryUsageKB        *int64

	// skill_observation / practice_logged
	Level   float64
	Source  string
	Minutes int

	// interview_evaluation
	Clarity    *float64
	Relevance  *float64
	Depth      *float64
	Confidence *float64

	// category_score
	Category           string
	Score              float64
	CategoryConfidence *float64

	// plan_action_completed
	ActionID     string
	TotalActions int
}

// AggregateKey returns the key of the aggregate the event mutates. Events
// sharing a key must be applied by the same writer.
func (e *Event) AggregateKey() string {
	switch e.Kind {
	case KindQuestionAttempt:
		return "question:" + e.QuestionID
	case KindTestStarted, KindTestCompleted:
		return "test:" + e.TestID
	case KindSubmissionResult:
		// The challenge roll-up is the shared aggregate; submissions are
		// owned by exactly one challenge.
		return "challenge:" + e.ChallengeID
	case KindSkillObservation, KindPracticeLogged:
		return SkillKey{UserID: e.UserID, Skill: e.Skill}.String()
	case KindInterviewEvaluation:
		return "interview:" + e.SessionID
	case KindCategoryScore:
		return "feedback:" + e.FeedbackID
	case KindPlanActionCompleted:
		return "plan:" + e.PlanID
	default:
		return "unknown:" + e.EventID
	}
}

// SkillKey identifies the single SkillProgress owned by a (user, skill) pair.
type SkillKey struct {
	UserID string
	Skill  string
}

// String renders the key; skill names are case-folded so "Go" and "go"
// resolve to the same progress record.
func (k SkillKey) String() string {
	return "skill:" + k.UserID + "/" + NormalizeSkill(k.Skill)
}

// NormalizeSkill trims and lower-cases a skill name.
func NormalizeSkill(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}
