package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// storeContract runs the same behavioural checks against any Store.
func storeContract(newStore func() Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Unknown aggregates are not found", func() {
		s := newStore()
		defer s.Close()

		_, err := s.GetQuestion(ctx, "missing")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		_, err = s.GetSkill(ctx, model.SkillKey{UserID: "u", Skill: "go"})
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		_, err = s.GetPlan(ctx, "missing")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
	})

	Convey("Update starts from the zero value and persists", func() {
		s := newStore()
		defer s.Close()

		err := s.UpdateQuestion(ctx, "q1", func(q *model.QuestionStats) error {
			So(q.QuestionID, ShouldEqual, "q1")
			So(q.TotalAttempts, ShouldEqual, 0)
			q.TotalAttempts = 2
			q.CorrectAttempts = 1
			q.UpdatedAt = now
			return nil
		})
		So(err, ShouldBeNil)

		q, err := s.GetQuestion(ctx, "q1")
		So(err, ShouldBeNil)
		So(q.TotalAttempts, ShouldEqual, 2)
		So(q.CorrectAttempts, ShouldEqual, 1)
		So(q.UpdatedAt.Equal(now), ShouldBeTrue)

		err = s.UpdateQuestion(ctx, "q1", func(q *model.QuestionStats) error {
			So(q.TotalAttempts, ShouldEqual, 2)
			q.TotalAttempts++
			return nil
		})
		So(err, ShouldBeNil)
		q, _ = s.GetQuestion(ctx, "q1")
		So(q.TotalAttempts, ShouldEqual, 3)
	})

	Convey("A failing update writes nothing", func() {
		s := newStore()
		defer s.Close()

		boom := errors.New("boom")
		So(s.UpdateTest(ctx, "t1", func(t *model.TestStats) error {
			t.TotalAttempts = 1
			return nil
		}), ShouldBeNil)

		err := s.UpdateTest(ctx, "t1", func(t *model.TestStats) error {
			t.TotalAttempts = 99
			return boom
		})
		So(errors.Is(err, boom), ShouldBeTrue)

		t, err := s.GetTest(ctx, "t1")
		So(err, ShouldBeNil)
		So(t.TotalAttempts, ShouldEqual, 1)
	})

	Convey("Submissions update with their challenge", func() {
		s := newStore()
		defer s.Close()

		execTime := 0.25
		err := s.UpdateSubmission(ctx, "c1", "s1", func(c *model.ChallengeStats, sub *model.Submission, found bool) error {
			So(found, ShouldBeFalse)
			So(sub.ChallengeID, ShouldEqual, "c1")
			c.TotalSubmissions++
			c.SuccessfulSubmissions++
			sub.UserID = "u1"
			sub.TotalCases, sub.PassedCases = 4, 4
			sub.Status = model.SubmissionCompleted
			sub.ExecutionTimeSeconds = &execTime
			return nil
		})
		So(err, ShouldBeNil)

		err = s.UpdateSubmission(ctx, "c1", "s1", func(c *model.ChallengeStats, sub *model.Submission, found bool) error {
			So(found, ShouldBeTrue)
			So(sub.PassedCases, ShouldEqual, 4)
			return nil
		})
		So(err, ShouldBeNil)

		c, err := s.GetChallenge(ctx, "c1")
		So(err, ShouldBeNil)
		So(c.TotalSubmissions, ShouldEqual, 1)
		So(c.SuccessfulSubmissions, ShouldEqual, 1)

		sub, err := s.GetSubmission(ctx, "s1")
		So(err, ShouldBeNil)
		So(sub.Status, ShouldEqual, model.SubmissionCompleted)
		So(*sub.ExecutionTimeSeconds, ShouldEqual, 0.25)
		So(sub.MemoryUsageKB, ShouldBeNil)
	})

	Convey("Skill progress is keyed by user and folded skill name", func() {
		s := newStore()
		defer s.Close()

		key := model.SkillKey{UserID: "u1", Skill: "  Go "}
		Convey("a nil result skips the write", func() {
			err := s.UpdateSkill(ctx, key, func(p *model.SkillProgress) (*model.SkillProgress, error) {
				So(p, ShouldBeNil)
				return nil, nil
			})
			So(IsNoChange(err), ShouldBeTrue)
			_, err = s.GetSkill(ctx, key)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("a returned progress is stored with its evidence", func() {
			err := s.UpdateSkill(ctx, key, func(p *model.SkillProgress) (*model.SkillProgress, error) {
				return &model.SkillProgress{
					CurrentLevel:   40,
					Evidence:       []model.Evidence{{Source: "quiz", Level: 40, Timestamp: now}},
					CreatedAt:      now,
					LastAssessedAt: now,
				}, nil
			})
			So(err, ShouldBeNil)

			p, err := s.GetSkill(ctx, model.SkillKey{UserID: "u1", Skill: "go"})
			So(err, ShouldBeNil)
			So(p.Skill, ShouldEqual, "go")
			So(p.CurrentLevel, ShouldEqual, 40)
			So(len(p.Evidence), ShouldEqual, 1)
			So(p.Evidence[0].Source, ShouldEqual, "quiz")

			err = s.UpdateSkill(ctx, key, func(p *model.SkillProgress) (*model.SkillProgress, error) {
				So(p, ShouldNotBeNil)
				p.Evidence = append(p.Evidence, model.Evidence{Source: "project", Level: 55, Timestamp: now})
				p.CurrentLevel = 55
				return p, nil
			})
			So(err, ShouldBeNil)
			p, _ = s.GetSkill(ctx, key)
			So(p.CurrentLevel, ShouldEqual, 55)
			So(len(p.Evidence), ShouldEqual, 2)
		})
	})

	Convey("Feedback categories and plan actions round trip", func() {
		s := newStore()
		defer s.Close()

		So(s.UpdateFeedback(ctx, "f1", func(f *model.Feedback) error {
			f.UserID = "u1"
			f.Categories = append(f.Categories, model.CategoryScore{Category: model.CategoryCommunication, Score: 70, DataPointsCount: 1})
			return nil
		}), ShouldBeNil)
		f, err := s.GetFeedback(ctx, "f1")
		So(err, ShouldBeNil)
		So(len(f.Categories), ShouldEqual, 1)
		So(f.Categories[0].Score, ShouldEqual, 70)

		So(s.UpdatePlan(ctx, "p1", func(p *model.PlanProgress) error {
			p.TotalActions = 4
			p.CompletedActionIDs = append(p.CompletedActionIDs, "a1")
			p.CompletionPercentage = 25
			return nil
		}), ShouldBeNil)
		p, err := s.GetPlan(ctx, "p1")
		So(err, ShouldBeNil)
		So(p.CompletedActionIDs, ShouldResemble, []string{"a1"})

		So(s.UpdateInterview(ctx, "i1", func(st *model.InterviewStats) error {
			st.QuestionsEvaluated = 1
			st.AverageScore = 80
			return nil
		}), ShouldBeNil)
		i, err := s.GetInterview(ctx, "i1")
		So(err, ShouldBeNil)
		So(i.AverageScore, ShouldEqual, 80)

		counts, err := s.Counts(ctx)
		So(err, ShouldBeNil)
		So(counts.Feedback, ShouldEqual, 1)
		So(counts.Plans, ShouldEqual, 1)
		So(counts.Interviews, ShouldEqual, 1)
		So(counts.Questions, ShouldEqual, 0)
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("MemoryStore", t, func() {
		storeContract(func() Store { return NewMemoryStore() })

		Convey("Returned values are copies", func() {
			s := NewMemoryStore()
			ctx := context.Background()
			So(s.UpdatePlan(ctx, "p1", func(p *model.PlanProgress) error {
				p.CompletedActionIDs = []string{"a1"}
				return nil
			}), ShouldBeNil)

			p, _ := s.GetPlan(ctx, "p1")
			p.CompletedActionIDs[0] = "mutated"
			again, _ := s.GetPlan(ctx, "p1")
			So(again.CompletedActionIDs[0], ShouldEqual, "a1")
		})
	})
}

func TestGormStoreSQLite(t *testing.T) {
	Convey("GormStore on sqlite", t, func() {
		storeContract(func() Store {
			dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
			s, err := Open(context.Background(), DriverSQLite, dsn)
			So(err, ShouldBeNil)
			return s
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Open picks the store by driver", t, func() {
		s, err := Open(context.Background(), "", "")
		So(err, ShouldBeNil)
		So(s, ShouldHaveSameTypeAs, &MemoryStore{})

		_, err = Open(context.Background(), "mongo", "")
		So(errors.Is(err, ErrUnknownDriver), ShouldBeTrue)
	})
}
