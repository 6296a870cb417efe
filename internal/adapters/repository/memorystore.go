package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/pkg/metrics"
)

// MemoryStore keeps aggregates in maps. Values handed to callers are
// copies, so a failed update never leaves partial state behind.
type MemoryStore struct {
	mu sync.RWMutex

	questions   map[string]*model.QuestionStats
	tests       map[string]*model.TestStats
	challenges  map[string]*model.ChallengeStats
	submissions map[string]*model.Submission
	skills      map[model.SkillKey]*model.SkillProgress
	feedback    map[string]*model.Feedback
	interviews  map[string]*model.InterviewStats
	plans       map[string]*model.PlanProgress
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions:   make(map[string]*model.QuestionStats),
		tests:       make(map[string]*model.TestStats),
		challenges:  make(map[string]*model.ChallengeStats),
		submissions: make(map[string]*model.Submission),
		skills:      make(map[model.SkillKey]*model.SkillProgress),
		feedback:    make(map[string]*model.Feedback),
		interviews:  make(map[string]*model.InterviewStats),
		plans:       make(map[string]*model.PlanProgress),
	}
}

func shallow[T any](v *T) *T {
	c := *v
	return &c
}

func observe(op, aggregate string, start time.Time) {
	metrics.RecordStoreLatency(op, aggregate, float64(time.Since(start).Microseconds())/1000)
}

func get[K comparable, T any](s *MemoryStore, m map[K]*T, key K, clone func(*T) *T, aggregate string) (*T, error) {
	defer observe("get", aggregate, time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func update[K comparable, T any](s *MemoryStore, m map[K]*T, key K, fresh func() *T, clone func(*T) *T,
	fn func(*T) error, aggregate string,
) error {
	defer observe("update", aggregate, time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	var work *T
	if cur, ok := m[key]; ok {
		work = clone(cur)
	} else {
		work = fresh()
	}
	if err := fn(work); err != nil {
		return err
	}
	m[key] = work
	return nil
}

func (s *MemoryStore) GetQuestion(_ context.Context, id string) (*model.QuestionStats, error) {
	return get(s, s.questions, id, shallow[model.QuestionStats], aggQuestion)
}

func (s *MemoryStore) GetTest(_ context.Context, id string) (*model.TestStats, error) {
	return get(s, s.tests, id, shallow[model.TestStats], aggTest)
}

func (s *MemoryStore) GetChallenge(_ context.Context, id string) (*model.ChallengeStats, error) {
	return get(s, s.challenges, id, shallow[model.ChallengeStats], aggChallenge)
}

func (s *MemoryStore) GetSubmission(_ context.Context, id string) (*model.Submission, error) {
	return get(s, s.submissions, id, (*model.Submission).Clone, aggSubmission)
}

func (s *MemoryStore) GetSkill(_ context.Context, key model.SkillKey) (*model.SkillProgress, error) {
	return get(s, s.skills, normalizeKey(key), (*model.SkillProgress).Clone, aggSkill)
}

func (s *MemoryStore) GetFeedback(_ context.Context, id string) (*model.Feedback, error) {
	return get(s, s.feedback, id, (*model.Feedback).Clone, aggFeedback)
}

func (s *MemoryStore) GetInterview(_ context.Context, id string) (*model.InterviewStats, error) {
	return get(s, s.interviews, id, shallow[model.InterviewStats], aggInterview)
}

func (s *MemoryStore) GetPlan(_ context.Context, id string) (*model.PlanProgress, error) {
	return get(s, s.plans, id, (*model.PlanProgress).Clone, aggPlan)
}

func (s *MemoryStore) UpdateQuestion(_ context.Context, id string, fn func(*model.QuestionStats) error) error {
	fresh := func() *model.QuestionStats { return &model.QuestionStats{QuestionID: id} }
	return update(s, s.questions, id, fresh, shallow[model.QuestionStats], fn, aggQuestion)
}

func (s *MemoryStore) UpdateTest(_ context.Context, id string, fn func(*model.TestStats) error) error {
	fresh := func() *model.TestStats { return &model.TestStats{TestID: id} }
	return update(s, s.tests, id, fresh, shallow[model.TestStats], fn, aggTest)
}

func (s *MemoryStore) UpdateSubmission(_ context.Context, challengeID, submissionID string,
	fn func(c *model.ChallengeStats, sub *model.Submission, found bool) error,
) error {
	defer observe("update", aggSubmission, time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &model.ChallengeStats{ChallengeID: challengeID}
	if cur, ok := s.challenges[challengeID]; ok {
		c = shallow(cur)
	}
	sub := &model.Submission{SubmissionID: submissionID, ChallengeID: challengeID}
	cur, found := s.submissions[submissionID]
	if found {
		sub = cur.Clone()
	}
	if err := fn(c, sub, found); err != nil {
		return err
	}
	s.challenges[challengeID] = c
	s.submissions[submissionID] = sub
	return nil
}

func (s *MemoryStore) UpdateSkill(_ context.Context, key model.SkillKey,
	fn func(p *model.SkillProgress) (*model.SkillProgress, error),
) error {
	defer observe("update", aggSkill, time.Now())
	key = normalizeKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *model.SkillProgress
	if p, ok := s.skills[key]; ok {
		cur = p.Clone()
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil {
		return ErrNoChange
	}
	next.UserID, next.Skill = key.UserID, key.Skill
	s.skills[key] = next
	return nil
}

func (s *MemoryStore) UpdateFeedback(_ context.Context, id string, fn func(*model.Feedback) error) error {
	fresh := func() *model.Feedback { return &model.Feedback{FeedbackID: id} }
	return update(s, s.feedback, id, fresh, (*model.Feedback).Clone, fn, aggFeedback)
}

func (s *MemoryStore) UpdateInterview(_ context.Context, id string, fn func(*model.InterviewStats) error) error {
	fresh := func() *model.InterviewStats { return &model.InterviewStats{SessionID: id} }
	return update(s, s.interviews, id, fresh, shallow[model.InterviewStats], fn, aggInterview)
}

func (s *MemoryStore) UpdatePlan(_ context.Context, id string, fn func(*model.PlanProgress) error) error {
	fresh := func() *model.PlanProgress { return &model.PlanProgress{PlanID: id} }
	return update(s, s.plans, id, fresh, (*model.PlanProgress).Clone, fn, aggPlan)
}

// Counts returns the number of stored aggregates by kind.
func (s *MemoryStore) Counts(context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Questions:   int64(len(s.questions)),
		Tests:       int64(len(s.tests)),
		Challenges:  int64(len(s.challenges)),
		Submissions: int64(len(s.submissions)),
		Skills:      int64(len(s.skills)),
		Feedback:    int64(len(s.feedback)),
		Interviews:  int64(len(s.interviews)),
		Plans:       int64(len(s.plans)),
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// IsNoChange reports whether err means an update was skipped on purpose.
func IsNoChange(err error) bool {
	return errors.Is(err, ErrNoChange)
}

func normalizeKey(k model.SkillKey) model.SkillKey {
	return model.SkillKey{UserID: k.UserID, Skill: model.NormalizeSkill(k.Skill)}
}
