package model

import "time"

// SubmissionStatus is the lifecycle state of a challenge submission.
type SubmissionStatus string

// Submission statuses. Only Completed and Failed are produced by result
// scoring; the rest describe submissions still owned by the judge.
const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionRunning   SubmissionStatus = "running"
	SubmissionCompleted SubmissionStatus = "completed"
	SubmissionFailed    SubmissionStatus = "failed"
	SubmissionTimeout   SubmissionStatus = "timeout"
	SubmissionError     SubmissionStatus = "error"
)

// Feedback categories produced by the platform.
const (
	CategoryTechnicalSkills      = "technical_skills"
	CategoryBehavioralSkills     = "behavioral_skills"
	CategoryCommunication        = "communication"
	CategoryProblemSolving       = "problem_solving"
	CategoryResumeQuality        = "resume_quality"
	CategoryInterviewPerformance = "interview_performance"
	CategoryCodingAbility        = "coding_ability"
	CategoryTestPerformance      = "test_performance"
)

// QuestionStats is the running record owned by a question.
type QuestionStats struct {
	QuestionID      string
	TotalAttempts   int64
	CorrectAttempts int64
	// TimedAttempts counts the attempts that reported a duration; it is the
	// n of AverageTime.
	TimedAttempts int64
	AverageTime   float64
	UpdatedAt     time.Time
}

// TestStats is the running record owned by a test.
type TestStats struct {
	TestID            string
	TotalAttempts     int64
	CompletedAttempts int64
	PassedAttempts    int64
	TimedCompletions  int64
	AverageScore      float64
	AverageDuration   float64
	UpdatedAt         time.Time
}

// ChallengeStats rolls up submissions made against one challenge.
type ChallengeStats struct {
	ChallengeID           string
	TotalSubmissions      int64
	SuccessfulSubmissions int64
	UpdatedAt             time.Time
}

// Submission is the scored result of one challenge submission.
type Submission struct {
	SubmissionID string
	ChallengeID  string
	UserID       string
	TotalCases   int
	PassedCases  int
	MaxScore     float64
	Score        float64
	Status       SubmissionStatus
	// ExecutionTimeSeconds and MemoryUsageKB keep their last reported value.
	ExecutionTimeSeconds *float64
	MemoryUsageKB        *int64
	CompletedAt          time.Time
}

// Evidence is one observation that moved a skill level.
type Evidence struct {
	Source    string    `json:"source"`
	Level     float64   `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// SkillProgress is the proficiency point of one user in one skill.
type SkillProgress struct {
	UserID                 string
	Skill                  string
	CurrentLevel           float64
	PreviousLevel          *float64
	ImprovementRatePerWeek float64
	Evidence               []Evidence
	TotalPracticeMinutes   int64
	ActivitiesCompleted    int64
	LastActivityAt         *time.Time
	CreatedAt              time.Time
	LastAssessedAt         time.Time
}

// CategoryScore is one line of a feedback breakdown.
type CategoryScore struct {
	Category             string   `json:"category"`
	Score                float64  `json:"score"`
	DataPointsCount      int64    `json:"data_points_count"`
	ConfidenceLevel      *float64 `json:"confidence_level,omitempty"`
	ImprovementSinceLast *float64 `json:"improvement_since_last,omitempty"`
}

// Feedback aggregates category scores in first-seen order.
type Feedback struct {
	FeedbackID string
	UserID     string
	Categories []CategoryScore
	UpdatedAt  time.Time
}

// InterviewStats keeps the running mean of evaluated interview questions.
type InterviewStats struct {
	SessionID          string
	UserID             string
	QuestionsEvaluated int64
	AverageScore       float64
	UpdatedAt          time.Time
}

// PlanProgress tracks completion of an improvement plan's actions.
type PlanProgress struct {
	PlanID               string
	UserID               string
	TotalActions         int
	CompletedActionIDs   []string
	CompletionPercentage float64
	UpdatedAt            time.Time
}
