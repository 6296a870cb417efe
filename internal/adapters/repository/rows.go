package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// Row types map aggregates onto tables. Timestamps are written as given;
// gorm's automatic timestamps are disabled.

type questionRow struct {
	QuestionID      string `gorm:"primaryKey;size:191"`
	TotalAttempts   int64
	CorrectAttempts int64
	TimedAttempts   int64
	AverageTime     float64
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
}

func (questionRow) TableName() string { return "question_stats" }

func (r *questionRow) toModel() *model.QuestionStats {
	return &model.QuestionStats{
		QuestionID:      r.QuestionID,
		TotalAttempts:   r.TotalAttempts,
		CorrectAttempts: r.CorrectAttempts,
		TimedAttempts:   r.TimedAttempts,
		AverageTime:     r.AverageTime,
		UpdatedAt:       r.UpdatedAt,
	}
}

func questionRowOf(q *model.QuestionStats) *questionRow {
	return &questionRow{
		QuestionID:      q.QuestionID,
		TotalAttempts:   q.TotalAttempts,
		CorrectAttempts: q.CorrectAttempts,
		TimedAttempts:   q.TimedAttempts,
		AverageTime:     q.AverageTime,
		UpdatedAt:       q.UpdatedAt,
	}
}

type testRow struct {
	TestID            string `gorm:"primaryKey;size:191"`
	TotalAttempts     int64
	CompletedAttempts int64
	PassedAttempts    int64
	TimedCompletions  int64
	AverageScore      float64
	AverageDuration   float64
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false"`
}

func (testRow) TableName() string { return "test_stats" }

func (r *testRow) toModel() *model.TestStats {
	return &model.TestStats{
		TestID:            r.TestID,
		TotalAttempts:     r.TotalAttempts,
		CompletedAttempts: r.CompletedAttempts,
		PassedAttempts:    r.PassedAttempts,
		TimedCompletions:  r.TimedCompletions,
		AverageScore:      r.AverageScore,
		AverageDuration:   r.AverageDuration,
		UpdatedAt:         r.UpdatedAt,
	}
}

func testRowOf(t *model.TestStats) *testRow {
	return &testRow{
		TestID:            t.TestID,
		TotalAttempts:     t.TotalAttempts,
		CompletedAttempts: t.CompletedAttempts,
		PassedAttempts:    t.PassedAttempts,
		TimedCompletions:  t.TimedCompletions,
		AverageScore:      t.AverageScore,
		AverageDuration:   t.AverageDuration,
		UpdatedAt:         t.UpdatedAt,
	}
}

type challengeRow struct {
	ChallengeID           string `gorm:"primaryKey;size:191"`
	TotalSubmissions      int64
	SuccessfulSubmissions int64
	UpdatedAt             time.Time `gorm:"autoUpdateTime:false"`
}

func (challengeRow) TableName() string { return "challenge_stats" }

type submissionRow struct {
	SubmissionID         string `gorm:"primaryKey;size:191"`
	ChallengeID          string `gorm:"size:191;index"`
	UserID               string `gorm:"size:191;index"`
	TotalCases           int
	PassedCases          int
	MaxScore             float64
	Score                float64
	Status               string `gorm:"size:32"`
	ExecutionTimeSeconds *float64
	MemoryUsageKB        *int64
	CompletedAt          time.Time
}

func (submissionRow) TableName() string { return "submissions" }

func (r *submissionRow) toModel() *model.Submission {
	return &model.Submission{
		SubmissionID:         r.SubmissionID,
		ChallengeID:          r.ChallengeID,
		UserID:               r.UserID,
		TotalCases:           r.TotalCases,
		PassedCases:          r.PassedCases,
		MaxScore:             r.MaxScore,
		Score:                r.Score,
		Status:               model.SubmissionStatus(r.Status),
		ExecutionTimeSeconds: r.ExecutionTimeSeconds,
		MemoryUsageKB:        r.MemoryUsageKB,
		CompletedAt:          r.CompletedAt,
	}
}

func submissionRowOf(s *model.Submission) *submissionRow {
	return &submissionRow{
		SubmissionID:         s.SubmissionID,
		ChallengeID:          s.ChallengeID,
		UserID:               s.UserID,
		TotalCases:           s.TotalCases,
		PassedCases:          s.PassedCases,
		MaxScore:             s.MaxScore,
		Score:                s.Score,
		Status:               string(s.Status),
		ExecutionTimeSeconds: s.ExecutionTimeSeconds,
		MemoryUsageKB:        s.MemoryUsageKB,
		CompletedAt:          s.CompletedAt,
	}
}

// skillRow enforces one progress record per (user, skill) with its
// composite primary key.
type skillRow struct {
	UserID                 string `gorm:"primaryKey;size:191"`
	Skill                  string `gorm:"primaryKey;size:191"`
	CurrentLevel           float64
	PreviousLevel          *float64
	ImprovementRatePerWeek float64
	Evidence               datatypes.JSON
	TotalPracticeMinutes   int64
	ActivitiesCompleted    int64
	LastActivityAt         *time.Time
	CreatedAt              time.Time `gorm:"autoCreateTime:false"`
	LastAssessedAt         time.Time
}

func (skillRow) TableName() string { return "skill_progress" }

func (r *skillRow) toModel() (*model.SkillProgress, error) {
	p := &model.SkillProgress{
		UserID:                 r.UserID,
		Skill:                  r.Skill,
		CurrentLevel:           r.CurrentLevel,
		PreviousLevel:          r.PreviousLevel,
		ImprovementRatePerWeek: r.ImprovementRatePerWeek,
		TotalPracticeMinutes:   r.TotalPracticeMinutes,
		ActivitiesCompleted:    r.ActivitiesCompleted,
		LastActivityAt:         r.LastActivityAt,
		CreatedAt:              r.CreatedAt,
		LastAssessedAt:         r.LastAssessedAt,
	}
	if err := decodeJSON(r.Evidence, &p.Evidence); err != nil {
		return nil, fmt.Errorf("decode evidence: %w", err)
	}
	return p, nil
}

func skillRowOf(p *model.SkillProgress) (*skillRow, error) {
	evidence, err := encodeJSON(p.Evidence)
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	return &skillRow{
		UserID:                 p.UserID,
		Skill:                  p.Skill,
		CurrentLevel:           p.CurrentLevel,
		PreviousLevel:          p.PreviousLevel,
		ImprovementRatePerWeek: p.ImprovementRatePerWeek,
		Evidence:               evidence,
		TotalPracticeMinutes:   p.TotalPracticeMinutes,
		ActivitiesCompleted:    p.ActivitiesCompleted,
		LastActivityAt:         p.LastActivityAt,
		CreatedAt:              p.CreatedAt,
		LastAssessedAt:         p.LastAssessedAt,
	}, nil
}

type feedbackRow struct {
	FeedbackID string `gorm:"primaryKey;size:191"`
	UserID     string `gorm:"size:191;index"`
	Categories datatypes.JSON
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

func (feedbackRow) TableName() string { return "feedback" }

func (r *feedbackRow) toModel() (*model.Feedback, error) {
	f := &model.Feedback{FeedbackID: r.FeedbackID, UserID: r.UserID, UpdatedAt: r.UpdatedAt}
	if err := decodeJSON(r.Categories, &f.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return f, nil
}

func feedbackRowOf(f *model.Feedback) (*feedbackRow, error) {
	cats, err := encodeJSON(f.Categories)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	return &feedbackRow{FeedbackID: f.FeedbackID, UserID: f.UserID, Categories: cats, UpdatedAt: f.UpdatedAt}, nil
}

type interviewRow struct {
	SessionID          string `gorm:"primaryKey;size:191"`
	UserID             string `gorm:"size:191;index"`
	QuestionsEvaluated int64
	AverageScore       float64
	UpdatedAt          time.Time `gorm:"autoUpdateTime:false"`
}

func (interviewRow) TableName() string { return "interview_stats" }

type planRow struct {
	PlanID               string `gorm:"primaryKey;size:191"`
	UserID               string `gorm:"size:191;index"`
	TotalActions         int
	CompletedActionIDs   datatypes.JSON
	CompletionPercentage float64
	UpdatedAt            time.Time `gorm:"autoUpdateTime:false"`
}

func (planRow) TableName() string { return "plan_progress" }

func (r *planRow) toModel() (*model.PlanProgress, error) {
	p := &model.PlanProgress{
		PlanID:               r.PlanID,
		UserID:               r.UserID,
		TotalActions:         r.TotalActions,
		CompletionPercentage: r.CompletionPercentage,
		UpdatedAt:            r.UpdatedAt,
	}
	if err := decodeJSON(r.CompletedActionIDs, &p.CompletedActionIDs); err != nil {
		return nil, fmt.Errorf("decode completed actions: %w", err)
	}
	return p, nil
}

func planRowOf(p *model.PlanProgress) (*planRow, error) {
	ids, err := encodeJSON(p.CompletedActionIDs)
	if err != nil {
		return nil, fmt.Errorf("encode completed actions: %w", err)
	}
	return &planRow{
		PlanID:               p.PlanID,
		UserID:               p.UserID,
		TotalActions:         p.TotalActions,
		CompletedActionIDs:   ids,
		CompletionPercentage: p.CompletionPercentage,
		UpdatedAt:            p.UpdatedAt,
	}, nil
}

// allRows lists every table for AutoMigrate.
func allRows() []interface{} {
	return []interface{}{
		&questionRow{},
		&testRow{},
		&challengeRow{},
		&submissionRow{},
		&skillRow{},
		&feedbackRow{},
		&interviewRow{},
		&planRow{},
	}
}

func encodeJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func decodeJSON(raw datatypes.JSON, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
