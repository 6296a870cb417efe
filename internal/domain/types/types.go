// Package types contains the read models returned to API clients.
package types

import (
	"time"

	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
)

// QuestionView is the public view of a question's statistics.
type QuestionView struct {
	QuestionID      string    `json:"question_id"`
	TotalAttempts   int64     `json:"total_attempts"`
	CorrectAttempts int64     `json:"correct_attempts"`
	SuccessRate     float64   `json:"success_rate"`
	AverageTime     float64   `json:"average_time_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewQuestionView derives the view of q.
func NewQuestionView(q *model.QuestionStats) QuestionView {
	return QuestionView{
		QuestionID:      q.QuestionID,
		TotalAttempts:   q.TotalAttempts,
		CorrectAttempts: q.CorrectAttempts,
		SuccessRate:     scoring.SuccessRate(q.CorrectAttempts, q.TotalAttempts),
		AverageTime:     q.AverageTime,
		UpdatedAt:       q.UpdatedAt,
	}
}

// TestView is the public view of a test's statistics.
type TestView struct {
	TestID            string    `json:"test_id"`
	TotalAttempts     int64     `json:"total_attempts"`
	CompletedAttempts int64     `json:"completed_attempts"`
	PassedAttempts    int64     `json:"passed_attempts"`
	AverageScore      float64   `json:"average_score"`
	AverageDuration   float64   `json:"average_duration_seconds"`
	CompletionRate    float64   `json:"completion_rate"`
	PassRate          float64   `json:"pass_rate"`
	Grade             string    `json:"grade"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewTestView derives the view of t.
func NewTestView(t *model.TestStats) TestView {
	return TestView{
		TestID:            t.TestID,
		TotalAttempts:     t.TotalAttempts,
		CompletedAttempts: t.CompletedAttempts,
		PassedAttempts:    t.PassedAttempts,
		AverageScore:      t.AverageScore,
		AverageDuration:   t.AverageDuration,
		CompletionRate:    scoring.CompletionRate(t.CompletedAttempts, t.TotalAttempts),
		PassRate:          scoring.PassRate(t.PassedAttempts, t.CompletedAttempts),
		Grade:             scoring.LetterGrade(t.AverageScore),
		UpdatedAt:         t.UpdatedAt,
	}
}

// ChallengeView is the public view of a challenge roll-up.
type ChallengeView struct {
	ChallengeID           string    `json:"challenge_id"`
	TotalSubmissions      int64     `json:"total_submissions"`
	SuccessfulSubmissions int64     `json:"successful_submissions"`
	SuccessRate           float64   `json:"success_rate"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// NewChallengeView derives the view of c.
func NewChallengeView(c *model.ChallengeStats) ChallengeView {
	return ChallengeView{
		ChallengeID:           c.ChallengeID,
		TotalSubmissions:      c.TotalSubmissions,
		SuccessfulSubmissions: c.SuccessfulSubmissions,
		SuccessRate:           scoring.SuccessRate(c.SuccessfulSubmissions, c.TotalSubmissions),
		UpdatedAt:             c.UpdatedAt,
	}
}

// SubmissionView is the public view of a scored submission.
type SubmissionView struct {
	SubmissionID         string    `json:"submission_id"`
	ChallengeID          string    `json:"challenge_id"`
	UserID               string    `json:"user_id,omitempty"`
	Status               string    `json:"status"`
	Score                float64   `json:"score"`
	MaxScore             float64   `json:"max_score"`
	TotalCases           int       `json:"total_cases"`
	PassedCases          int       `json:"passed_cases"`
	SuccessRate          float64   `json:"success_rate"`
	Successful           bool      `json:"successful"`
	ExecutionTimeSeconds *float64  `json:"execution_time_seconds,omitempty"`
	MemoryUsageKB        *int64    `json:"memory_usage_kb,omitempty"`
	CompletedAt          time.Time `json:"completed_at"`
}

// NewSubmissionView derives the view of s.
func NewSubmissionView(s *model.Submission) SubmissionView {
	out := scoring.RecordSubmissionResult(s.TotalCases, s.PassedCases, s.MaxScore)
	return SubmissionView{
		SubmissionID:         s.SubmissionID,
		ChallengeID:          s.ChallengeID,
		UserID:               s.UserID,
		Status:               string(s.Status),
		Score:                s.Score,
		MaxScore:             s.MaxScore,
		TotalCases:           s.TotalCases,
		PassedCases:          s.PassedCases,
		SuccessRate:          out.SuccessRate,
		Successful:           s.Status == model.SubmissionCompleted && out.Successful,
		ExecutionTimeSeconds: s.ExecutionTimeSeconds,
		MemoryUsageKB:        s.MemoryUsageKB,
		CompletedAt:          s.CompletedAt,
	}
}

// SkillView is the public view of a user's skill progress.
type SkillView struct {
	UserID                 string           `json:"user_id"`
	Skill                  string           `json:"skill"`
	CurrentLevel           float64          `json:"current_level"`
	PreviousLevel          *float64         `json:"previous_level,omitempty"`
	Trend                  string           `json:"trend"`
	Proficiency            string           `json:"proficiency"`
	ImprovementRatePerWeek float64          `json:"improvement_rate_per_week"`
	Evidence               []model.Evidence `json:"evidence"`
	TotalPracticeMinutes   int64            `json:"total_practice_minutes"`
	ActivitiesCompleted    int64            `json:"activities_completed"`
	LastActivityAt         *time.Time       `json:"last_activity_at,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	LastAssessedAt         time.Time        `json:"last_assessed_at"`
}

// NewSkillView derives the view of p.
func NewSkillView(p *model.SkillProgress) SkillView {
	evidence := p.Evidence
	if evidence == nil {
		evidence = []model.Evidence{}
	}
	return SkillView{
		UserID:                 p.UserID,
		Skill:                  p.Skill,
		CurrentLevel:           p.CurrentLevel,
		PreviousLevel:          p.PreviousLevel,
		Trend:                  string(scoring.TrendDirection(p.CurrentLevel, p.PreviousLevel)),
		Proficiency:            scoring.ProficiencyLabel(p.CurrentLevel),
		ImprovementRatePerWeek: p.ImprovementRatePerWeek,
		Evidence:               evidence,
		TotalPracticeMinutes:   p.TotalPracticeMinutes,
		ActivitiesCompleted:    p.ActivitiesCompleted,
		LastActivityAt:         p.LastActivityAt,
		CreatedAt:              p.CreatedAt,
		LastAssessedAt:         p.LastAssessedAt,
	}
}

// CategoryView is one scored feedback category.
type CategoryView struct {
	model.CategoryScore
	Grade            string `json:"grade"`
	PerformanceLevel string `json:"performance_level"`
}

// FeedbackView is the public view of a feedback breakdown.
type FeedbackView struct {
	FeedbackID       string         `json:"feedback_id"`
	UserID           string         `json:"user_id,omitempty"`
	OverallScore     float64        `json:"overall_score"`
	Grade            string         `json:"grade"`
	PerformanceLevel string         `json:"performance_level"`
	TargetScore      float64        `json:"target_score"`
	Categories       []CategoryView `json:"categories"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewFeedbackView derives the view of f.
func NewFeedbackView(f *model.Feedback) FeedbackView {
	overall := scoring.FeedbackOverall(f)
	cats := make([]CategoryView, 0, len(f.Categories))
	for _, c := range f.Categories {
		cats = append(cats, CategoryView{
			CategoryScore:    c,
			Grade:            scoring.LetterGrade(c.Score),
			PerformanceLevel: scoring.PerformanceLevel(c.Score),
		})
	}
	return FeedbackView{
		FeedbackID:       f.FeedbackID,
		UserID:           f.UserID,
		OverallScore:     overall,
		Grade:            scoring.LetterGrade(overall),
		PerformanceLevel: scoring.PerformanceLevel(overall),
		TargetScore:      scoring.TargetScore(overall),
		Categories:       cats,
		UpdatedAt:        f.UpdatedAt,
	}
}

// InterviewView is the public view of an interview session.
type InterviewView struct {
	SessionID          string    `json:"session_id"`
	UserID             string    `json:"user_id,omitempty"`
	QuestionsEvaluated int64     `json:"questions_evaluated"`
	AverageScore       float64   `json:"average_score"`
	Grade              string    `json:"grade"`
	PerformanceLevel   string    `json:"performance_level"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewInterviewView derives the view of s.
func NewInterviewView(s *model.InterviewStats) InterviewView {
	return InterviewView{
		SessionID:          s.SessionID,
		UserID:             s.UserID,
		QuestionsEvaluated: s.QuestionsEvaluated,
		AverageScore:       s.AverageScore,
		Grade:              scoring.LetterGrade(s.AverageScore),
		PerformanceLevel:   scoring.PerformanceLevel(s.AverageScore),
		UpdatedAt:          s.UpdatedAt,
	}
}

// PlanView is the public view of improvement plan progress.
type PlanView struct {
	PlanID               string    `json:"plan_id"`
	UserID               string    `json:"user_id,omitempty"`
	TotalActions         int       `json:"total_actions"`
	ActionsCompleted     int       `json:"actions_completed"`
	CompletedActionIDs   []string  `json:"completed_action_ids"`
	CompletionPercentage float64   `json:"completion_percentage"`
	Phase                string    `json:"phase"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewPlanView derives the view of p.
func NewPlanView(p *model.PlanProgress) PlanView {
	ids := p.CompletedActionIDs
	if ids == nil {
		ids = []string{}
	}
	return PlanView{
		PlanID:               p.PlanID,
		UserID:               p.UserID,
		TotalActions:         p.TotalActions,
		ActionsCompleted:     len(ids),
		CompletedActionIDs:   ids,
		CompletionPercentage: p.CompletionPercentage,
		Phase:                scoring.PlanPhase(p.CompletionPercentage),
		UpdatedAt:            p.UpdatedAt,
	}
}

// GradeView is the response of a grade lookup.
type GradeView struct {
	Score            float64 `json:"score"`
	Grade            string  `json:"grade"`
	PerformanceLevel string  `json:"performance_level"`
}

// NewGradeView grades a raw score.
func NewGradeView(score float64) GradeView {
	return GradeView{
		Score:            score,
		Grade:            scoring.LetterGrade(score),
		PerformanceLevel: scoring.PerformanceLevel(score),
	}
}

// AttemptView is the scored form of a submitted test attempt.
type AttemptView struct {
	scoring.AttemptScore
	PassingScore float64 `json:"passing_score"`
	Passed       bool    `json:"passed"`
	Grade        string  `json:"grade"`
}

// NewAttemptView scores answers against a passing score.
func NewAttemptView(answers []scoring.GradedAnswer, passingScore float64) AttemptView {
	s := scoring.FinalAttemptScore(answers)
	return AttemptView{
		AttemptScore: s,
		PassingScore: passingScore,
		Passed:       scoring.Passed(s.PercentageScore, passingScore),
		Grade:        scoring.LetterGrade(s.PercentageScore),
	}
}
