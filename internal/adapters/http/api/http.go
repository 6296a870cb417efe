// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	service "github.com/truthschool/prepscore/internal/app"
	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
	"github.com/truthschool/prepscore/internal/domain/types"
	"github.com/truthschool/prepscore/pkg/logger"
	"github.com/truthschool/prepscore/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Submit validates, deduplicates and enqueues an event.
	Submit(ctx context.Context, e model.Event) (service.Ack, error)

	Question(ctx context.Context, id string) (types.QuestionView, error)
	Test(ctx context.Context, id string) (types.TestView, error)
	Challenge(ctx context.Context, id string) (types.ChallengeView, error)
	Submission(ctx context.Context, id string) (types.SubmissionView, error)
	Skill(ctx context.Context, userID, skill string) (types.SkillView, error)
	Feedback(ctx context.Context, id string) (types.FeedbackView, error)
	Interview(ctx context.Context, id string) (types.InterviewView, error)
	Plan(ctx context.Context, id string) (types.PlanView, error)

	Grade(score float64) types.GradeView
	Recommendations(general, ats, content []string, limit *int) []scoring.Recommendation
	ScoreAttempt(answers []scoring.GradedAnswer, passingScore float64) types.AttemptView
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	stats   StatsProvider
	router  *chi.Mux
	origins []string
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewServer creates a new API server with all routes registered.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		stats:   stats,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	s.setupRouter()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.With(s.rateLimit).Post("/events", s.handlePostEvent)

		r.Get("/questions/{id}/stats", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Question(ctx, chi.URLParam(r, "id"))
		}))
		r.Get("/tests/{id}/stats", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Test(ctx, chi.URLParam(r, "id"))
		}))
		r.Get("/challenges/{id}/stats", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Challenge(ctx, chi.URLParam(r, "id"))
		}))
		r.Get("/submissions/{id}", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Submission(ctx, chi.URLParam(r, "id"))
		}))
		r.Get("/users/{userID}/skills/{skill}", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Skill(ctx, chi.URLParam(r, "userID"), chi.URLParam(r, "skill"))
		}))
		r.Get("/feedback/{id}", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Feedback(ctx, chi.URLParam(r, "id"))
		}))
		r.Get("/interviews/{id}/stats", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Interview(ctx, chi.URLParam(r, "id"))
		}))
		r.Get("/plans/{id}", readHandler(s, func(ctx context.Context, r *http.Request) (interface{}, error) {
			return s.deps.Plan(ctx, chi.URLParam(r, "id"))
		}))

		r.Post("/grades", s.handleGrade)
		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/attempts/score", s.handleScoreAttempt)
	})

	s.router = r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidEvent), errors.Is(err, service.ErrUnknownKind), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrQueueClosed), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}

// decode reads a JSON body and validates it against its struct tags.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return wrapBadRequest(err)
	}
	if err := validate.Struct(v); err != nil {
		return wrapBadRequest(err)
	}
	return nil
}

// readHandler serves a single read model.
func readHandler(s *Server, read func(ctx context.Context, r *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := read(r.Context(), r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
