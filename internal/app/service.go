// Package service wires the intake pipeline and exposes the read models
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	redisdedupe "github.com/truthschool/prepscore/internal/adapters/dedupe/redis"
	eventqueue "github.com/truthschool/prepscore/internal/adapters/mq/queue"
	workerpool "github.com/truthschool/prepscore/internal/adapters/mq/worker"
	"github.com/truthschool/prepscore/internal/adapters/repository"
	"github.com/truthschool/prepscore/internal/config"
	"github.com/truthschool/prepscore/internal/domain/dedupe"
	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
	"github.com/truthschool/prepscore/internal/domain/types"
	"github.com/truthschool/prepscore/pkg/logger"
	"github.com/truthschool/prepscore/pkg/metrics"
)

const (
	defaultQueueSize          = 100_000
	defaultPartitions         = 8
	defaultDedupeSize         = 500_000
	defaultMaxRecommendations = 5
	runtimeSampleInterval     = 10 * time.Second
)

// Ack is the intake outcome of one event.
type Ack struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Intake statuses.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)

// Service owns the pipeline from intake to store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	queue    eventqueue.Queue
	pool     *workerpool.Pool
	recorder *Recorder

	// Configuration
	queueSize          int
	partitions         int
	dedupeSize         int
	dedupeTTL          time.Duration
	maxRecommendations int
	now                func() time.Time

	// State
	started   bool
	stopped   bool
	startedAt time.Time
	cancel    context.CancelFunc
	loopDone  chan struct{}
	pending   atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the total queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPartitions sets the number of queue partitions and workers.
func WithPartitions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.partitions = n
		}
	}
}

// WithDedupeSize bounds the in-memory deduper.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL sets how long event ids are remembered.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.dedupeTTL = ttl
	}
}

// WithMaxRecommendations sets the default recommendation limit.
func WithMaxRecommendations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRecommendations = n
		}
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDeduper replaces the default in-memory deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithClock sets the clock used for missing timestamps and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The store and deduper default to their
// in-memory implementations.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:          defaultQueueSize,
		partitions:         defaultPartitions,
		dedupeSize:         defaultDedupeSize,
		maxRecommendations: defaultMaxRecommendations,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize), dedupe.WithTTL(s.dedupeTTL))
	}
	return s
}

// NewFromConfig opens the configured store and deduper and returns a
// Service using them.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, error) {
	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var d dedupe.Deduper
	switch cfg.DedupeBackend {
	case config.DedupeRedis:
		rd, err := redisdedupe.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisdedupe.WithTTL(cfg.DedupeTTL))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("dial redis: %w", err)
		}
		d = rd
	default:
		d = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize), dedupe.WithTTL(cfg.DedupeTTL))
	}

	return New(
		WithQueueSize(cfg.QueueSize),
		WithPartitions(cfg.PartitionCount),
		WithDedupeSize(cfg.DedupeSize),
		WithDedupeTTL(cfg.DedupeTTL),
		WithMaxRecommendations(cfg.MaxRecommendations),
		WithStore(store),
		WithDeduper(d),
	), nil
}

// Start creates missing components and starts the workers. Workers keep
// draining after ctx is cancelled; call Stop to shut them down.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.queue = eventqueue.NewPartitionedQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithPartitions(s.partitions),
	)
	s.recorder = NewRecorder(s.store, WithRecorderClock(s.now))
	s.pool = workerpool.NewPool(s.queue, workerpool.ApplierFunc(s.apply))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.loopDone = make(chan struct{})
	go s.sampleRuntime(runCtx, s.loopDone)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "service started",
		logger.Int("partitions", s.partitions),
		logger.Int("queue_size", s.queue.Capacity()),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// apply runs the recorder and counts the event as no longer pending. An
// event that failed for any reason other than being invalid is forgotten
// by the deduper so a retry with the same id is applied.
func (s *Service) apply(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events are values
	defer s.pending.Add(-1)
	err := s.recorder.Apply(ctx, e)
	if err == nil || errors.Is(err, ErrInvalidEvent) || errors.Is(err, ErrUnknownKind) {
		return err
	}
	if uerr := s.deduper.Unrecord(ctx, e.EventID); uerr != nil {
		s.logger.Error(ctx, "dedupe rollback failed", logger.String("event_id", e.EventID), logger.Error(uerr))
	}
	return err
}

func (s *Service) sampleRuntime(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(runtimeSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SampleRuntime()
			s.queue.Len(ctx)
		}
	}
}

// Stop closes the queue, waits for the workers to drain it within ctx and
// releases the store and deduper. A stopped Service cannot be started
// again; Stop on a Service that never started only releases resources.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "stopping service")

	var errs []error
	if s.started {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.cancel()
		<-s.loopDone
		s.started = false
	}

	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if c, ok := s.deduper.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close deduper: %w", err))
		}
	}

	s.logger.Info(ctx, "service stopped")
	return errors.Join(errs...)
}

// Submit validates, deduplicates and enqueues an event. A missing event
// id is generated and a missing timestamp is set to now. A full partition
// returns ErrBackpressure and forgets the id so the client may retry.
func (s *Service) Submit(ctx context.Context, e model.Event) (Ack, error) { //nolint:gocritic // hugeParam: events are values
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Ack{}, ErrNotStarted
	}

	kind := string(e.Kind)
	metrics.RecordEventReceived(kind)

	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = s.now()
	}
	if err := Validate(&e); err != nil {
		metrics.RecordEventRejected("invalid")
		return Ack{EventID: e.EventID}, err
	}

	seen, err := s.deduper.SeenAndRecord(ctx, e.EventID)
	if err != nil {
		metrics.RecordErrorByComponent("dedupe", "seen_and_record")
		return Ack{EventID: e.EventID}, fmt.Errorf("dedupe: %w", err)
	}
	if seen {
		metrics.RecordEventDuplicate(kind)
		s.logger.Debug(ctx, "duplicate event", logger.String("event_id", e.EventID))
		return Ack{EventID: e.EventID, Status: StatusDuplicate, Duplicate: true}, nil
	}

	s.pending.Add(1)
	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.pending.Add(-1)
		if uerr := s.deduper.Unrecord(ctx, e.EventID); uerr != nil {
			s.logger.Error(ctx, "dedupe rollback failed", logger.String("event_id", e.EventID), logger.Error(uerr))
		}
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			return Ack{EventID: e.EventID}, ErrBackpressure
		case errors.Is(err, eventqueue.ErrClosed):
			return Ack{EventID: e.EventID}, ErrQueueClosed
		default:
			return Ack{EventID: e.EventID}, fmt.Errorf("enqueue: %w", err)
		}
	}
	return Ack{EventID: e.EventID, Status: StatusAccepted}, nil
}

// Question returns the stats of a question.
func (s *Service) Question(ctx context.Context, id string) (types.QuestionView, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return types.QuestionView{}, err
	}
	return types.NewQuestionView(q), nil
}

// Test returns the stats of a test.
func (s *Service) Test(ctx context.Context, id string) (types.TestView, error) {
	t, err := s.store.GetTest(ctx, id)
	if err != nil {
		return types.TestView{}, err
	}
	return types.NewTestView(t), nil
}

// Challenge returns the submission roll-up of a challenge.
func (s *Service) Challenge(ctx context.Context, id string) (types.ChallengeView, error) {
	c, err := s.store.GetChallenge(ctx, id)
	if err != nil {
		return types.ChallengeView{}, err
	}
	return types.NewChallengeView(c), nil
}

// Submission returns a scored submission.
func (s *Service) Submission(ctx context.Context, id string) (types.SubmissionView, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return types.SubmissionView{}, err
	}
	return types.NewSubmissionView(sub), nil
}

// Skill returns a user's progress on one skill.
func (s *Service) Skill(ctx context.Context, userID, skill string) (types.SkillView, error) {
	p, err := s.store.GetSkill(ctx, model.SkillKey{UserID: userID, Skill: skill})
	if err != nil {
		return types.SkillView{}, err
	}
	return types.NewSkillView(p), nil
}

// Feedback returns a feedback breakdown with its overall grade.
func (s *Service) Feedback(ctx context.Context, id string) (types.FeedbackView, error) {
	f, err := s.store.GetFeedback(ctx, id)
	if err != nil {
		return types.FeedbackView{}, err
	}
	return types.NewFeedbackView(f), nil
}

// Interview returns the evaluation roll-up of an interview session.
func (s *Service) Interview(ctx context.Context, id string) (types.InterviewView, error) {
	st, err := s.store.GetInterview(ctx, id)
	if err != nil {
		return types.InterviewView{}, err
	}
	return types.NewInterviewView(st), nil
}

// Plan returns the progress of an improvement plan.
func (s *Service) Plan(ctx context.Context, id string) (types.PlanView, error) {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return types.PlanView{}, err
	}
	return types.NewPlanView(p), nil
}

// Grade grades a score.
func (s *Service) Grade(score float64) types.GradeView {
	return types.NewGradeView(score)
}

// Recommendations merges the resume recommendation pools and returns the
// top entries. A nil limit uses the configured default.
func (s *Service) Recommendations(general, ats, content []string, limit *int) []scoring.Recommendation {
	n := s.maxRecommendations
	if limit != nil {
		n = *limit
	}
	return scoring.TopRecommendations(scoring.ResumeRecommendationPools(general, ats, content), n)
}

// ScoreAttempt scores a set of graded answers against a passing score.
func (s *Service) ScoreAttempt(answers []scoring.GradedAnswer, passingScore float64) types.AttemptView {
	return types.NewAttemptView(answers, passingScore)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"partitions": s.partitions,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	stats["uptimeSeconds"] = s.now().Sub(s.startedAt).Seconds()
	stats["queueLength"] = s.queue.Len(ctx)
	stats["queueCapacity"] = s.queue.Capacity()
	stats["workers"] = s.pool.Size()
	stats["dedupeEntries"] = s.deduper.Size(ctx)
	if counts, err := s.store.Counts(ctx); err == nil {
		stats["aggregates"] = counts
	} else {
		s.logger.Warn(ctx, "store counts failed", logger.Error(err))
	}
	return stats
}

// Wait blocks until every accepted event has been applied or ctx is done.
// It is meant for tests.
func (s *Service) Wait(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
