package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// Package-level validator instance for request bodies.
var validate = validator.New()

// eventRequest mirrors the JSON body of POST /v1/events. Only the fields
// relevant to the kind are read.
type eventRequest struct {
	EventID string `json:"event_id" validate:"omitempty,max=128"`
	Kind    string `json:"kind" validate:"required,oneof=question_attempt test_started test_completed submission_result skill_observation practice_logged interview_evaluation category_score plan_action_completed"`
	TS      string `json:"ts" validate:"omitempty"`
	UserID  string `json:"user_id" validate:"max=191"`

	QuestionID   string `json:"question_id" validate:"max=191"`
	TestID       string `json:"test_id" validate:"max=191"`
	ChallengeID  string `json:"challenge_id" validate:"max=191"`
	SubmissionID string `json:"submission_id" validate:"max=191"`
	SessionID    string `json:"session_id" validate:"max=191"`
	FeedbackID   string `json:"feedback_id" validate:"max=191"`
	PlanID       string `json:"plan_id" validate:"max=191"`
	Skill        string `json:"skill" validate:"max=191"`

	Correct          bool     `json:"correct"`
	TimeTakenSeconds *float64 `json:"time_taken_seconds" validate:"omitempty,gte=0"`

	PercentageScore float64  `json:"percentage_score" validate:"gte=0,lte=100"`
	PassingScore    float64  `json:"passing_score" validate:"gte=0,lte=100"`
	DurationSeconds *float64 `json:"duration_seconds" validate:"omitempty,gte=0"`

	TotalCases           int      `json:"total_cases" validate:"gte=0"`
	PassedCases          int      `json:"passed_cases" validate:"gte=0,ltefield=TotalCases"`
	MaxScore             float64  `json:"max_score" validate:"gte=0"`
	ExecutionTimeSeconds *float64 `json:"execution_time_seconds" validate:"omitempty,gte=0"`
	MemoryUsageKB        *int64   `json:"memory_usage_kb" validate:"omitempty,gte=0"`

	Level   float64 `json:"level" validate:"gte=0,lte=100"`
	Source  string  `json:"source" validate:"max=64"`
	Minutes int     `json:"minutes" validate:"gte=0"`

	Clarity    *float64 `json:"clarity" validate:"omitempty,gte=0,lte=100"`
	Relevance  *float64 `json:"relevance" validate:"omitempty,gte=0,lte=100"`
	Depth      *float64 `json:"depth" validate:"omitempty,gte=0,lte=100"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=100"`

	Category        string   `json:"category" validate:"max=64"`
	Score           float64  `json:"score" validate:"gte=0,lte=100"`
	ConfidenceLevel *float64 `json:"confidence_level" validate:"omitempty,gte=0,lte=1"`

	ActionID     string `json:"action_id" validate:"max=191"`
	TotalActions int    `json:"total_actions" validate:"gte=0"`
}

func (e *eventRequest) toModel() (model.Event, error) {
	var ts time.Time
	if e.TS != "" {
		parsed, err := time.Parse(time.RFC3339, e.TS)
		if err != nil {
			return model.Event{}, wrapBadRequest(errors.New("invalid ts; must be RFC3339"))
		}
		ts = parsed
	}
	return model.Event{
		EventID:              e.EventID,
		Kind:                 model.Kind(e.Kind),
		TS:                   ts,
		UserID:               e.UserID,
		QuestionID:           e.QuestionID,
		TestID:               e.TestID,
		ChallengeID:          e.ChallengeID,
		SubmissionID:         e.SubmissionID,
		SessionID:            e.SessionID,
		FeedbackID:           e.FeedbackID,
		PlanID:               e.PlanID,
		Skill:                e.Skill,
		Correct:              e.Correct,
		TimeTakenSeconds:     e.TimeTakenSeconds,
		PercentageScore:      e.PercentageScore,
		PassingScore:         e.PassingScore,
		DurationSeconds:      e.DurationSeconds,
		TotalCases:           e.TotalCases,
		PassedCases:          e.PassedCases,
		MaxScore:             e.MaxScore,
		ExecutionTimeSeconds: e.ExecutionTimeSeconds,
		MemoryUsageKB:        e.MemoryUsageKB,
		Level:                e.Level,
		Source:               e.Source,
		Minutes:              e.Minutes,
		Clarity:              e.Clarity,
		Relevance:            e.Relevance,
		Depth:                e.Depth,
		Confidence:           e.Confidence,
		Category:             e.Category,
		Score:                e.Score,
		CategoryConfidence:   e.ConfidenceLevel,
		ActionID:             e.ActionID,
		TotalActions:         e.TotalActions,
	}, nil
}

// handlePostEvent handles POST /v1/events.
func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	e, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ack, err := s.deps.Submit(r.Context(), e)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
