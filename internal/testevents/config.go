package testevents

import "time"

// Config holds configuration for the event test
type Config struct {
	BaseURL        string        // Base URL of the service
	NumEvents      int           // Number of unique events to generate
	Users          int           // Number of simulated users
	Questions      int           // Number of distinct questions
	Tests          int           // Number of distinct tests
	Challenges     int           // Number of distinct coding challenges
	DuplicateRatio float64       // Share of events re-sent with the same event_id
	Seed           uint64        // Generator seed; equal seeds give equal datasets
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	SettleTimeout  time.Duration // How long to wait for read models to converge
	OutputFile     string        // Output file for events
	LogFile        string        // Log file for test output
	Verbose        bool          // Enable verbose logging
}

// Event is the JSON body of POST /v1/events.
type Event struct {
	EventID string `json:"event_id"`
	Kind    string `json:"kind"`
	TS      string `json:"ts,omitempty"`
	UserID  string `json:"user_id,omitempty"`

	QuestionID   string `json:"question_id,omitempty"`
	TestID       string `json:"test_id,omitempty"`
	ChallengeID  string `json:"challenge_id,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	FeedbackID   string `json:"feedback_id,omitempty"`
	PlanID       string `json:"plan_id,omitempty"`
	Skill        string `json:"skill,omitempty"`

	Correct          bool     `json:"correct,omitempty"`
	TimeTakenSeconds *float64 `json:"time_taken_seconds,omitempty"`

	PercentageScore float64  `json:"percentage_score,omitempty"`
	PassingScore    float64  `json:"passing_score,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`

	TotalCases  int     `json:"total_cases,omitempty"`
	PassedCases int     `json:"passed_cases,omitempty"`
	MaxScore    float64 `json:"max_score,omitempty"`

	Level   float64 `json:"level,omitempty"`
	Source  string  `json:"source,omitempty"`
	Minutes int     `json:"minutes,omitempty"`

	Clarity    *float64 `json:"clarity,omitempty"`
	Relevance  *float64 `json:"relevance,omitempty"`
	Depth      *float64 `json:"depth,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	Category        string   `json:"category,omitempty"`
	Score           float64  `json:"score,omitempty"`
	ConfidenceLevel *float64 `json:"confidence_level,omitempty"`

	ActionID     string `json:"action_id,omitempty"`
	TotalActions int    `json:"total_actions,omitempty"`
}

// AckResponse represents the response from event submission
type AckResponse struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics
type Stats struct {
	EventsGenerated    int
	ExpectedDuplicates int
	EventsSubmitted    int
	EventsAccepted     int
	EventsDuplicate    int
	EventsFailed       int
	EventsRetried      int
	AggregatesVerified int
	Mismatches         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
