package testevents

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
	"github.com/truthschool/prepscore/pkg/logger"
)

var (
	skills = []string{"go", "sql", "system_design", "algorithms", "communication"}

	categories = []string{
		model.CategoryTechnicalSkills,
		model.CategoryCommunication,
		model.CategoryProblemSolving,
		model.CategoryCodingAbility,
	}

	sources = []string{"test", "challenge", "interview", "self_assessment"}

	// kindWeights drives the mix of the main batch.
	kindWeights = []struct {
		kind   model.Kind
		weight int
	}{
		{model.KindQuestionAttempt, 30},
		{model.KindTestStarted, 5},
		{model.KindTestCompleted, 10},
		{model.KindSubmissionResult, 15},
		{model.KindSkillObservation, 10},
		{model.KindPracticeLogged, 10},
		{model.KindInterviewEvaluation, 8},
		{model.KindCategoryScore, 7},
		{model.KindPlanActionCompleted, 5},
	}
)

// Dataset is a generated workload and the read models it must produce.
// Seed events open every tracked skill and are applied before Events so
// practice is never logged against an unknown skill.
type Dataset struct {
	Seed     []Event
	Events   []Event
	Expected *Expected
}

// All returns seed and main events in submission order.
func (d *Dataset) All() []Event {
	out := make([]Event, 0, len(d.Seed)+len(d.Events))
	out = append(out, d.Seed...)
	return append(out, d.Events...)
}

// Expected holds the aggregates computed locally from the unique events.
// Only order-independent fields are compared against the service.
type Expected struct {
	Questions   map[string]*model.QuestionStats
	Tests       map[string]*model.TestStats
	Challenges  map[string]*model.ChallengeStats
	Submissions map[string]*model.Submission
	Skills      map[model.SkillKey]*model.SkillProgress
	Interviews  map[string]*model.InterviewStats
	Feedback    map[string]*model.Feedback
	Plans       map[string]*model.PlanProgress
	Duplicates  int
}

func newExpected() *Expected {
	return &Expected{
		Questions:   make(map[string]*model.QuestionStats),
		Tests:       make(map[string]*model.TestStats),
		Challenges:  make(map[string]*model.ChallengeStats),
		Submissions: make(map[string]*model.Submission),
		Skills:      make(map[model.SkillKey]*model.SkillProgress),
		Interviews:  make(map[string]*model.InterviewStats),
		Feedback:    make(map[string]*model.Feedback),
		Plans:       make(map[string]*model.PlanProgress),
	}
}

// Aggregates is the number of read models Expected describes.
func (x *Expected) Aggregates() int {
	return len(x.Questions) + len(x.Tests) + len(x.Challenges) + len(x.Submissions) +
		len(x.Skills) + len(x.Interviews) + len(x.Feedback) + len(x.Plans)
}

type generator struct {
	cfg     *Config
	src     *rand.ChaCha8
	rng     *rand.Rand
	base    time.Time
	tracked []model.SkillKey
}

// generateEvents builds the dataset for config.
func generateEvents(ctx context.Context, config *Config, stats *Stats) (*Dataset, error) {
	if config.NumEvents <= 0 {
		return nil, fmt.Errorf("number of events must be positive, got %d", config.NumEvents)
	}
	if config.Users <= 0 || config.Questions <= 0 || config.Tests <= 0 || config.Challenges <= 0 {
		return nil, fmt.Errorf("users, questions, tests and challenges must be positive")
	}
	if config.DuplicateRatio < 0 || config.DuplicateRatio > 1 {
		return nil, fmt.Errorf("duplicate ratio must be within [0,1], got %v", config.DuplicateRatio)
	}

	logger.Get().Info(ctx, "generating events",
		logger.Int("events", config.NumEvents),
		logger.Int("users", config.Users),
		logger.Any("seed", config.Seed))

	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], config.Seed)
	src := rand.NewChaCha8(seed)
	g := &generator{
		cfg:  config,
		src:  src,
		rng:  rand.New(src), //nolint:gosec // load generator
		base: time.Now().UTC().Truncate(time.Second),
	}
	ds := &Dataset{Expected: newExpected()}

	for u := 0; u < config.Users; u++ {
		for _, s := range []string{skills[u%len(skills)], skills[(u+1)%len(skills)]} {
			key := model.SkillKey{UserID: userID(u), Skill: s}
			g.tracked = append(g.tracked, key)
			e := g.observation(key)
			ds.Expected.apply(&e, g.ts(&e))
			ds.Seed = append(ds.Seed, e)
		}
	}

	for i := 0; i < config.NumEvents; i++ {
		e := g.next()
		ds.Expected.apply(&e, g.ts(&e))
		ds.Events = append(ds.Events, e)
	}

	dups := int(float64(len(ds.Events)) * config.DuplicateRatio)
	for i := 0; i < dups; i++ {
		ds.Events = append(ds.Events, ds.Events[g.rng.IntN(config.NumEvents)])
	}
	g.rng.Shuffle(len(ds.Events), func(i, j int) {
		ds.Events[i], ds.Events[j] = ds.Events[j], ds.Events[i]
	})
	ds.Expected.Duplicates = dups

	stats.EventsGenerated = len(ds.Seed) + len(ds.Events)
	stats.ExpectedDuplicates = dups

	logger.Get().Info(ctx, "events generated",
		logger.Int("seed", len(ds.Seed)),
		logger.Int("main", len(ds.Events)),
		logger.Int("duplicates", dups),
		logger.Int("aggregates", ds.Expected.Aggregates()))
	return ds, nil
}

// id draws an event id from the seeded stream so reruns resend the same
// ids.
func (g *generator) id() string {
	u, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

func userID(i int) string { return fmt.Sprintf("user-%03d", i) }

func (g *generator) user() int { return g.rng.IntN(g.cfg.Users) }

func (g *generator) pick() model.Kind {
	total := 0
	for _, kw := range kindWeights {
		total += kw.weight
	}
	n := g.rng.IntN(total)
	for _, kw := range kindWeights {
		if n < kw.weight {
			return kw.kind
		}
		n -= kw.weight
	}
	return model.KindQuestionAttempt
}

// score returns a score in [0,100] with two decimals.
func (g *generator) score() float64 {
	return float64(g.rng.IntN(10001)) / 100
}

func (g *generator) maybe(v float64) *float64 {
	if g.rng.IntN(4) == 0 {
		return nil
	}
	return &v
}

func (g *generator) stamp() string {
	offset := time.Duration(g.rng.IntN(30*24*3600)) * time.Second
	return g.base.Add(-offset).Format(time.RFC3339)
}

func (g *generator) ts(e *Event) time.Time {
	t, err := time.Parse(time.RFC3339, e.TS)
	if err != nil {
		return g.base
	}
	return t
}

func (g *generator) observation(key model.SkillKey) Event {
	return Event{
		EventID: g.id(),
		Kind:    string(model.KindSkillObservation),
		TS:      g.stamp(),
		UserID:  key.UserID,
		Skill:   key.Skill,
		Level:   g.score(),
		Source:  sources[g.rng.IntN(len(sources))],
	}
}

func (g *generator) next() Event {
	kind := g.pick()
	u := g.user()
	e := Event{
		EventID: g.id(),
		Kind:    string(kind),
		TS:      g.stamp(),
		UserID:  userID(u),
	}

	switch kind {
	case model.KindQuestionAttempt:
		e.QuestionID = fmt.Sprintf("question-%03d", g.rng.IntN(g.cfg.Questions))
		e.Correct = g.rng.IntN(2) == 0
		e.TimeTakenSeconds = g.maybe(float64(5 + g.rng.IntN(300)))
	case model.KindTestStarted:
		e.TestID = fmt.Sprintf("test-%03d", g.rng.IntN(g.cfg.Tests))
	case model.KindTestCompleted:
		e.TestID = fmt.Sprintf("test-%03d", g.rng.IntN(g.cfg.Tests))
		e.PercentageScore = g.score()
		e.PassingScore = 60
		e.DurationSeconds = g.maybe(float64(60 + g.rng.IntN(3600)))
	case model.KindSubmissionResult:
		e.ChallengeID = fmt.Sprintf("challenge-%03d", g.rng.IntN(g.cfg.Challenges))
		e.SubmissionID = "submission-" + g.id()
		e.TotalCases = 1 + g.rng.IntN(20)
		e.PassedCases = g.rng.IntN(e.TotalCases + 1)
		e.MaxScore = 100
	case model.KindSkillObservation:
		return g.observation(g.tracked[g.rng.IntN(len(g.tracked))])
	case model.KindPracticeLogged:
		key := g.tracked[g.rng.IntN(len(g.tracked))]
		e.UserID = key.UserID
		e.Skill = key.Skill
		e.Minutes = 5 + g.rng.IntN(120)
	case model.KindInterviewEvaluation:
		e.SessionID = fmt.Sprintf("interview-%03d", u)
		e.Clarity = g.maybe(g.score())
		e.Relevance = g.maybe(g.score())
		e.Depth = g.maybe(g.score())
		e.Confidence = g.maybe(g.score())
	case model.KindCategoryScore:
		e.FeedbackID = fmt.Sprintf("feedback-%03d", u)
		e.Category = categories[g.rng.IntN(len(categories))]
		e.Score = g.score()
		e.ConfidenceLevel = g.maybe(float64(g.rng.IntN(101)) / 100)
	case model.KindPlanActionCompleted:
		e.PlanID = fmt.Sprintf("plan-%03d", u)
		e.ActionID = fmt.Sprintf("action-%02d", g.rng.IntN(PlanActions))
		e.TotalActions = PlanActions
	}
	return e
}

// apply folds e into the expected aggregates with the scoring rules the
// service uses.
//
//nolint:gocyclo // one case per kind
func (x *Expected) apply(e *Event, at time.Time) {
	switch model.Kind(e.Kind) {
	case model.KindQuestionAttempt:
		q := x.Questions[e.QuestionID]
		if q == nil {
			q = &model.QuestionStats{QuestionID: e.QuestionID}
			x.Questions[e.QuestionID] = q
		}
		scoring.RecordQuestionAttempt(q, e.Correct, e.TimeTakenSeconds)
	case model.KindTestStarted, model.KindTestCompleted:
		t := x.Tests[e.TestID]
		if t == nil {
			t = &model.TestStats{TestID: e.TestID}
			x.Tests[e.TestID] = t
		}
		if e.Kind == string(model.KindTestStarted) {
			scoring.RecordTestAttemptStarted(t)
			return
		}
		scoring.RecordTestCompletion(t, e.PercentageScore, scoring.Passed(e.PercentageScore, e.PassingScore), e.DurationSeconds)
	case model.KindSubmissionResult:
		c := x.Challenges[e.ChallengeID]
		if c == nil {
			c = &model.ChallengeStats{ChallengeID: e.ChallengeID}
			x.Challenges[e.ChallengeID] = c
		}
		out := scoring.RecordSubmissionResult(e.TotalCases, e.PassedCases, e.MaxScore)
		s := &model.Submission{SubmissionID: e.SubmissionID, ChallengeID: e.ChallengeID, UserID: e.UserID}
		scoring.ApplySubmissionOutcome(s, e.TotalCases, e.PassedCases, e.MaxScore, out)
		x.Submissions[e.SubmissionID] = s
		scoring.RecordChallengeSubmission(c, out.Successful)
	case model.KindSkillObservation:
		key := model.SkillKey{UserID: e.UserID, Skill: model.NormalizeSkill(e.Skill)}
		p := x.Skills[key]
		if p == nil {
			x.Skills[key] = scoring.NewSkillProgress(e.UserID, e.Skill, e.Level, e.Source, at)
			return
		}
		scoring.UpdateSkillLevel(p, e.Level, e.Source, at)
	case model.KindPracticeLogged:
		if p := x.Skills[model.SkillKey{UserID: e.UserID, Skill: model.NormalizeSkill(e.Skill)}]; p != nil {
			scoring.AddPracticeTime(p, e.Minutes, at)
		}
	case model.KindInterviewEvaluation:
		s := x.Interviews[e.SessionID]
		if s == nil {
			s = &model.InterviewStats{SessionID: e.SessionID, UserID: e.UserID}
			x.Interviews[e.SessionID] = s
		}
		scoring.RecordInterviewEvaluation(s, scoring.OverallScore(e.Clarity, e.Relevance, e.Depth, e.Confidence))
	case model.KindCategoryScore:
		f := x.Feedback[e.FeedbackID]
		if f == nil {
			f = &model.Feedback{FeedbackID: e.FeedbackID, UserID: e.UserID}
			x.Feedback[e.FeedbackID] = f
		}
		scoring.RecordCategoryScore(f, e.Category, e.Score, e.ConfidenceLevel)
	case model.KindPlanActionCompleted:
		p := x.Plans[e.PlanID]
		if p == nil {
			p = &model.PlanProgress{PlanID: e.PlanID, UserID: e.UserID}
			x.Plans[e.PlanID] = p
		}
		p.TotalActions = e.TotalActions
		scoring.MarkActionCompleted(p, e.ActionID)
	}
}
