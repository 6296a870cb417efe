package api

import (
	"net/http"

	"github.com/truthschool/prepscore/internal/domain/scoring"
)

type gradeRequest struct {
	Score *float64 `json:"score" validate:"required,gte=0,lte=100"`
}

// handleGrade handles POST /v1/grades.
func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Grade(*req.Score))
}

type recommendationsRequest struct {
	General []string `json:"general" validate:"dive,required"`
	ATS     []string `json:"ats" validate:"dive,required"`
	Content []string `json:"content" validate:"dive,required"`
	// Limit falls back to the configured default when omitted.
	Limit *int `json:"limit" validate:"omitempty,gte=0"`
}

type recommendationsResponse struct {
	Recommendations []scoring.Recommendation `json:"recommendations"`
}

// handleRecommendations handles POST /v1/recommendations.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	recs := s.deps.Recommendations(req.General, req.ATS, req.Content, req.Limit)
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs})
}

type attemptRequest struct {
	Answers      []scoring.GradedAnswer `json:"answers" validate:"required,dive"`
	PassingScore float64                `json:"passing_score" validate:"gte=0,lte=100"`
}

// handleScoreAttempt handles POST /v1/attempts/score.
func (s *Server) handleScoreAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.ScoreAttempt(req.Answers, req.PassingScore))
}
