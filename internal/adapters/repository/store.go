// Package repository persists aggregates. Every Update loads the aggregate
// (or starts from its zero value), applies fn and stores the result
// atomically; when fn fails nothing is written. fn may return ErrNoChange
// to leave the aggregate untouched, which Update passes back to the caller.
//
// Writers are expected to be serialised per aggregate by the caller. Two
// processes racing on the same aggregate resolve as last write wins.
package repository

import (
	"context"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// Store provides read/write access to every aggregate.
type Store interface {
	// Get* return ErrNotFound for unknown keys.
	GetQuestion(ctx context.Context, questionID string) (*model.QuestionStats, error)
	GetTest(ctx context.Context, testID string) (*model.TestStats, error)
	GetChallenge(ctx context.Context, challengeID string) (*model.ChallengeStats, error)
	GetSubmission(ctx context.Context, submissionID string) (*model.Submission, error)
	GetSkill(ctx context.Context, key model.SkillKey) (*model.SkillProgress, error)
	GetFeedback(ctx context.Context, feedbackID string) (*model.Feedback, error)
	GetInterview(ctx context.Context, sessionID string) (*model.InterviewStats, error)
	GetPlan(ctx context.Context, planID string) (*model.PlanProgress, error)

	UpdateQuestion(ctx context.Context, questionID string, fn func(*model.QuestionStats) error) error
	UpdateTest(ctx context.Context, testID string, fn func(*model.TestStats) error) error
	// UpdateSubmission changes a submission and its challenge together.
	// found reports whether the submission already existed.
	UpdateSubmission(ctx context.Context, challengeID, submissionID string,
		fn func(c *model.ChallengeStats, s *model.Submission, found bool) error) error
	// UpdateSkill passes a nil progress when the pair is not tracked yet; fn
	// returns the progress to store.
	UpdateSkill(ctx context.Context, key model.SkillKey,
		fn func(p *model.SkillProgress) (*model.SkillProgress, error)) error
	UpdateFeedback(ctx context.Context, feedbackID string, fn func(*model.Feedback) error) error
	UpdateInterview(ctx context.Context, sessionID string, fn func(*model.InterviewStats) error) error
	UpdatePlan(ctx context.Context, planID string, fn func(*model.PlanProgress) error) error

	// Counts returns the number of stored aggregates by kind.
	Counts(ctx context.Context) (Counts, error)

	// Close releases underlying resources.
	Close() error
}

// Counts is the number of stored aggregates by kind.
type Counts struct {
	Questions   int64 `json:"questions"`
	Tests       int64 `json:"tests"`
	Challenges  int64 `json:"challenges"`
	Submissions int64 `json:"submissions"`
	Skills      int64 `json:"skills"`
	Feedback    int64 `json:"feedback"`
	Interviews  int64 `json:"interviews"`
	Plans       int64 `json:"plans"`
}

// Aggregate labels used in metrics.
const (
	aggQuestion   = "question"
	aggTest       = "test"
	aggChallenge  = "challenge"
	aggSubmission = "submission"
	aggSkill      = "skill"
	aggFeedback   = "feedback"
	aggInterview  = "interview"
	aggPlan       = "plan"
)
