package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/truthschool/prepscore/internal/adapters/repository"
	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
	"github.com/truthschool/prepscore/pkg/logger"
	"github.com/truthschool/prepscore/pkg/metrics"
	"github.com/truthschool/prepscore/pkg/tracing"
)

// Recorder turns events into aggregate updates. Every update runs the pure
// scoring functions inside Store.Update, so a failed write leaves the
// aggregate as it was.
type Recorder struct {
	store  repository.Store
	now    func() time.Time
	tracer trace.Tracer
	logger logger.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock sets the clock used for UpdatedAt stamps.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRecorderLogger sets a custom logger.
func WithRecorderLogger(l logger.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store repository.Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  store,
		now:    time.Now,
		tracer: tracing.Tracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("recorder")
	}
	return r
}

// Apply records one event. Events that deliberately change nothing, such
// as practice logged against a skill that was never observed, return nil.
func (r *Recorder) Apply(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events are values
	kind := string(e.Kind)
	ctx, span := r.tracer.Start(ctx, "prepscore.apply", trace.WithAttributes(
		attribute.String("prepscore.kind", kind),
		attribute.String("prepscore.key", e.AggregateKey()),
		attribute.String("prepscore.event_id", e.EventID),
	))
	defer span.End()

	start := time.Now()
	err := r.apply(ctx, &e)
	metrics.RecordApplyLatency(kind, float64(time.Since(start).Microseconds())/1000)

	switch {
	case err == nil:
		metrics.RecordEventApplied(kind)
		return nil
	case repository.IsNoChange(err):
		span.SetAttributes(attribute.Bool("prepscore.skipped", true))
		metrics.RecordEventRejected("no_change")
		r.logger.Warn(ctx, "event skipped",
			logger.String("event_id", e.EventID),
			logger.String("kind", kind),
			logger.String("key", e.AggregateKey()),
		)
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("apply %s %s: %w", kind, e.EventID, err)
	}
}

//nolint:gocyclo // one case per kind
func (r *Recorder) apply(ctx context.Context, e *model.Event) error {
	now := r.now()
	observedAt := e.TS
	if observedAt.IsZero() {
		observedAt = now
	}

	switch e.Kind {
	case model.KindQuestionAttempt:
		return r.store.UpdateQuestion(ctx, e.QuestionID, func(q *model.QuestionStats) error {
			scoring.RecordQuestionAttempt(q, e.Correct, e.TimeTakenSeconds)
			q.UpdatedAt = now
			return nil
		})

	case model.KindTestStarted:
		return r.store.UpdateTest(ctx, e.TestID, func(t *model.TestStats) error {
			scoring.RecordTestAttemptStarted(t)
			t.UpdatedAt = now
			return nil
		})

	case model.KindTestCompleted:
		passed := scoring.Passed(e.PercentageScore, e.PassingScore)
		return r.store.UpdateTest(ctx, e.TestID, func(t *model.TestStats) error {
			scoring.RecordTestCompletion(t, e.PercentageScore, passed, e.DurationSeconds)
			t.UpdatedAt = now
			return nil
		})

	case model.KindSubmissionResult:
		return r.recordSubmission(ctx, e, now, observedAt)

	case model.KindSkillObservation:
		return r.store.UpdateSkill(ctx, skillKey(e), func(p *model.SkillProgress) (*model.SkillProgress, error) {
			if p == nil {
				return scoring.NewSkillProgress(e.UserID, e.Skill, e.Level, e.Source, observedAt), nil
			}
			scoring.UpdateSkillLevel(p, e.Level, e.Source, observedAt)
			return p, nil
		})

	case model.KindPracticeLogged:
		return r.store.UpdateSkill(ctx, skillKey(e), func(p *model.SkillProgress) (*model.SkillProgress, error) {
			if p == nil {
				return nil, nil
			}
			scoring.AddPracticeTime(p, e.Minutes, observedAt)
			return p, nil
		})

	case model.KindInterviewEvaluation:
		overall := scoring.OverallScore(e.Clarity, e.Relevance, e.Depth, e.Confidence)
		return r.store.UpdateInterview(ctx, e.SessionID, func(s *model.InterviewStats) error {
			if s.UserID == "" {
				s.UserID = e.UserID
			}
			scoring.RecordInterviewEvaluation(s, overall)
			s.UpdatedAt = now
			return nil
		})

	case model.KindCategoryScore:
		return r.store.UpdateFeedback(ctx, e.FeedbackID, func(f *model.Feedback) error {
			if f.UserID == "" {
				f.UserID = e.UserID
			}
			scoring.RecordCategoryScore(f, e.Category, e.Score, e.CategoryConfidence)
			f.UpdatedAt = now
			return nil
		})

	case model.KindPlanActionCompleted:
		return r.store.UpdatePlan(ctx, e.PlanID, func(p *model.PlanProgress) error {
			if p.UserID == "" {
				p.UserID = e.UserID
			}
			if e.TotalActions > 0 {
				p.TotalActions = e.TotalActions
			}
			scoring.MarkActionCompleted(p, e.ActionID)
			p.UpdatedAt = now
			return nil
		})

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// recordSubmission scores a submission and keeps its challenge roll-up in
// step. A re-judged submission counts once; only its success may change.
func (r *Recorder) recordSubmission(ctx context.Context, e *model.Event, now, observedAt time.Time) error {
	out := scoring.RecordSubmissionResult(e.TotalCases, e.PassedCases, e.MaxScore)
	return r.store.UpdateSubmission(ctx, e.ChallengeID, e.SubmissionID,
		func(c *model.ChallengeStats, s *model.Submission, found bool) error {
			if found && s.ChallengeID != e.ChallengeID {
				return fmt.Errorf("%w: submission %s belongs to challenge %s", ErrInvalidEvent, s.SubmissionID, s.ChallengeID)
			}

			if !found {
				scoring.RecordChallengeSubmission(c, out.Successful)
			} else {
				was := scoring.RecordSubmissionResult(s.TotalCases, s.PassedCases, s.MaxScore).Successful
				switch {
				case out.Successful && !was:
					c.SuccessfulSubmissions++
				case !out.Successful && was:
					c.SuccessfulSubmissions--
				}
			}

			scoring.ApplySubmissionOutcome(s, e.TotalCases, e.PassedCases, e.MaxScore, out)
			if e.UserID != "" {
				s.UserID = e.UserID
			}
			s.ExecutionTimeSeconds = e.ExecutionTimeSeconds
			s.MemoryUsageKB = e.MemoryUsageKB
			s.CompletedAt = observedAt
			c.UpdatedAt = now
			return nil
		})
}

func skillKey(e *model.Event) model.SkillKey {
	return model.SkillKey{UserID: e.UserID, Skill: e.Skill}
}
