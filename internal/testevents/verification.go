package testevents

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
	"github.com/truthschool/prepscore/internal/domain/types"
	"github.com/truthschool/prepscore/pkg/logger"
)

// errNotConverged is returned when read models still differ from the
// expected aggregates after the settle timeout.
var errNotConverged = errors.New("read models did not converge")

// mismatches collects verification failures from concurrent checks.
type mismatches struct {
	mu   sync.Mutex
	list []string
}

func (m *mismatches) add(format string, args ...interface{}) {
	m.mu.Lock()
	m.list = append(m.list, fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

func (m *mismatches) sorted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.list...)
	sort.Strings(out)
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) <= FloatTolerance }

type check func(ctx context.Context, client *HTTPClient, m *mismatches) error

// fetch reads path into out, recording a mismatch when the model is
// missing. It reports whether out was filled.
func fetch(ctx context.Context, client *HTTPClient, m *mismatches, path string, out interface{}) (bool, error) {
	status, err := client.getJSON(ctx, path, out)
	if err != nil {
		return false, fmt.Errorf("GET %s: %w", path, err)
	}
	if status != http.StatusOK {
		m.add("%s: status %d", path, status)
		return false, nil
	}
	return true, nil
}

//nolint:gocyclo // one block per read model
func checks(x *Expected) []check {
	var out []check

	for id, want := range x.Questions {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.QuestionView
			path := "/v1/questions/" + url.PathEscape(id) + "/stats"
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			exp := types.NewQuestionView(want)
			if got.TotalAttempts != exp.TotalAttempts || got.CorrectAttempts != exp.CorrectAttempts {
				m.add("%s: attempts %d/%d, want %d/%d", path, got.CorrectAttempts, got.TotalAttempts, exp.CorrectAttempts, exp.TotalAttempts)
			}
			if !near(got.AverageTime, exp.AverageTime) {
				m.add("%s: average time %v, want %v", path, got.AverageTime, exp.AverageTime)
			}
			return nil
		})
	}

	for id, want := range x.Tests {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.TestView
			path := "/v1/tests/" + url.PathEscape(id) + "/stats"
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			exp := types.NewTestView(want)
			if got.TotalAttempts != exp.TotalAttempts || got.CompletedAttempts != exp.CompletedAttempts || got.PassedAttempts != exp.PassedAttempts {
				m.add("%s: attempts %d/%d/%d, want %d/%d/%d", path,
					got.TotalAttempts, got.CompletedAttempts, got.PassedAttempts,
					exp.TotalAttempts, exp.CompletedAttempts, exp.PassedAttempts)
			}
			if !near(got.AverageScore, exp.AverageScore) || !near(got.AverageDuration, exp.AverageDuration) {
				m.add("%s: averages %v/%v, want %v/%v", path, got.AverageScore, got.AverageDuration, exp.AverageScore, exp.AverageDuration)
			}
			return nil
		})
	}

	for id, want := range x.Challenges {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.ChallengeView
			path := "/v1/challenges/" + url.PathEscape(id) + "/stats"
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			if got.TotalSubmissions != want.TotalSubmissions || got.SuccessfulSubmissions != want.SuccessfulSubmissions {
				m.add("%s: submissions %d/%d, want %d/%d", path,
					got.SuccessfulSubmissions, got.TotalSubmissions, want.SuccessfulSubmissions, want.TotalSubmissions)
			}
			return nil
		})
	}

	for id, want := range x.Submissions {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.SubmissionView
			path := "/v1/submissions/" + url.PathEscape(id)
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			if got.ChallengeID != want.ChallengeID || got.Status != string(want.Status) || !near(got.Score, want.Score) {
				m.add("%s: %s %s %v, want %s %s %v", path,
					got.ChallengeID, got.Status, got.Score, want.ChallengeID, want.Status, want.Score)
			}
			return nil
		})
	}

	for key, want := range x.Skills {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.SkillView
			path := "/v1/users/" + url.PathEscape(key.UserID) + "/skills/" + url.PathEscape(key.Skill)
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			if len(got.Evidence) != len(want.Evidence) {
				m.add("%s: evidence %d, want %d", path, len(got.Evidence), len(want.Evidence))
			}
			if got.TotalPracticeMinutes != want.TotalPracticeMinutes || got.ActivitiesCompleted != want.ActivitiesCompleted {
				m.add("%s: practice %d min over %d, want %d min over %d", path,
					got.TotalPracticeMinutes, got.ActivitiesCompleted, want.TotalPracticeMinutes, want.ActivitiesCompleted)
			}
			return nil
		})
	}

	for id, want := range x.Interviews {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.InterviewView
			path := "/v1/interviews/" + url.PathEscape(id) + "/stats"
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			if got.QuestionsEvaluated != want.QuestionsEvaluated || !near(got.AverageScore, want.AverageScore) {
				m.add("%s: %d at %v, want %d at %v", path,
					got.QuestionsEvaluated, got.AverageScore, want.QuestionsEvaluated, want.AverageScore)
			}
			return nil
		})
	}

	for id, want := range x.Feedback {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.FeedbackView
			path := "/v1/feedback/" + url.PathEscape(id)
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			compareCategories(m, path, got.Categories, want.Categories)
			if overall := scoring.FeedbackOverall(want); !near(got.OverallScore, overall) {
				m.add("%s: overall %v, want %v", path, got.OverallScore, overall)
			}
			return nil
		})
	}

	for id, want := range x.Plans {
		out = append(out, func(ctx context.Context, client *HTTPClient, m *mismatches) error {
			var got types.PlanView
			path := "/v1/plans/" + url.PathEscape(id)
			ok, err := fetch(ctx, client, m, path, &got)
			if !ok {
				return err
			}
			if got.TotalActions != want.TotalActions || got.ActionsCompleted != len(want.CompletedActionIDs) ||
				!near(got.CompletionPercentage, want.CompletionPercentage) {
				m.add("%s: %d of %d (%v%%), want %d of %d (%v%%)", path,
					got.ActionsCompleted, got.TotalActions, got.CompletionPercentage,
					len(want.CompletedActionIDs), want.TotalActions, want.CompletionPercentage)
			}
			return nil
		})
	}

	return out
}

// compareCategories matches categories by name; arrival order differs
// between runs.
func compareCategories(m *mismatches, path string, got []types.CategoryView, want []model.CategoryScore) {
	if len(got) != len(want) {
		m.add("%s: %d categories, want %d", path, len(got), len(want))
		return
	}
	byName := make(map[string]types.CategoryView, len(got))
	for _, c := range got {
		byName[c.Category] = c
	}
	for _, w := range want {
		g, ok := byName[w.Category]
		switch {
		case !ok:
			m.add("%s: missing category %s", path, w.Category)
		case g.DataPointsCount != w.DataPointsCount || !near(g.Score, w.Score):
			m.add("%s: %s %d at %v, want %d at %v", path, w.Category, g.DataPointsCount, g.Score, w.DataPointsCount, w.Score)
		}
	}
}

// verifyOnce runs every check and returns the mismatches found.
func verifyOnce(ctx context.Context, config *Config, client *HTTPClient, x *Expected) ([]string, error) {
	m := &mismatches{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, c := range checks(x) {
		g.Go(func() error { return c(gctx, client, m) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m.sorted(), nil
}

// verifyResults polls the read models until they match x or the settle
// timeout passes. Events are applied asynchronously, so early rounds are
// expected to differ.
func verifyResults(ctx context.Context, config *Config, client *HTTPClient, x *Expected, stats *Stats) error {
	logger.Get().Info(ctx, "verifying read models", logger.Int("aggregates", x.Aggregates()))

	deadline := time.Now().Add(config.SettleTimeout)
	for round := 1; ; round++ {
		found, err := verifyOnce(ctx, config, client, x)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			stats.AggregatesVerified = x.Aggregates()
			stats.Mismatches = 0
			logger.Get().Info(ctx, "read models verified", logger.Int("rounds", round))
			return nil
		}
		if time.Now().After(deadline) {
			stats.Mismatches = len(found)
			stats.AggregatesVerified = x.Aggregates() - len(found)
			limit := min(len(found), 10)
			for _, msg := range found[:limit] {
				logger.Get().Error(ctx, "read model mismatch", logger.String("detail", msg))
			}
			return fmt.Errorf("%w: %d mismatches after %d rounds", errNotConverged, len(found), round)
		}
		if config.Verbose {
			logger.Get().Info(ctx, "read models pending", logger.Int("round", round), logger.Int("mismatches", len(found)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}

// awaitSkills waits until every seeded skill can be read.
func awaitSkills(ctx context.Context, config *Config, client *HTTPClient, seed []Event) error {
	deadline := time.Now().Add(config.SettleTimeout)
	pending := make(map[model.SkillKey]struct{}, len(seed))
	for _, e := range seed {
		pending[model.SkillKey{UserID: e.UserID, Skill: e.Skill}] = struct{}{}
	}
	for len(pending) > 0 {
		for key := range pending {
			path := "/v1/users/" + url.PathEscape(key.UserID) + "/skills/" + url.PathEscape(key.Skill)
			status, err := client.getJSON(ctx, path, nil)
			if err != nil {
				return fmt.Errorf("GET %s: %w", path, err)
			}
			if status == http.StatusOK {
				delete(pending, key)
			}
		}
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d seeded skills missing", errNotConverged, len(pending))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PollInterval):
		}
	}
	return nil
}
