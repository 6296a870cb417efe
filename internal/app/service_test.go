package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/truthschool/prepscore/internal/adapters/repository"
	service "github.com/truthschool/prepscore/internal/app"
	"github.com/truthschool/prepscore/internal/config"
	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
)

func f64(v float64) *float64 { return &v }

// blockingStore holds question updates until release is closed.
type blockingStore struct {
	*repository.MemoryStore
	release chan struct{}
}

func (b *blockingStore) UpdateQuestion(ctx context.Context, id string, fn func(*model.QuestionStats) error) error {
	<-b.release
	return b.MemoryStore.UpdateQuestion(ctx, id, fn)
}

// flakyStore fails the first question updates with a transient error.
type flakyStore struct {
	*repository.MemoryStore
	failures atomic.Int32
}

var errUnavailable = errors.New("db unavailable")

func (f *flakyStore) UpdateQuestion(ctx context.Context, id string, fn func(*model.QuestionStats) error) error {
	if f.failures.Add(-1) >= 0 {
		return errUnavailable
	}
	return f.MemoryStore.UpdateQuestion(ctx, id, fn)
}

func startService(opts ...service.Option) (*service.Service, func()) {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		So(svc.Stop(ctx), ShouldBeNil)
	}
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, stop := startService(service.WithPartitions(4))
		defer stop()
		ctx := context.Background()

		Convey("accepted events are applied to their aggregates", func() {
			for i, correct := range []bool{true, false, true, true} {
				ack, err := svc.Submit(ctx, model.Event{
					EventID:          "q-" + string(rune('a'+i)),
					Kind:             model.KindQuestionAttempt,
					QuestionID:       "q1",
					Correct:          correct,
					TimeTakenSeconds: f64(float64(10 * (i + 1))),
				})
				So(err, ShouldBeNil)
				So(ack.Status, ShouldEqual, service.StatusAccepted)
			}
			So(svc.Wait(ctx), ShouldBeNil)

			view, err := svc.Question(ctx, "q1")
			So(err, ShouldBeNil)
			So(view.TotalAttempts, ShouldEqual, 4)
			So(view.SuccessRate, ShouldAlmostEqual, 75, 1e-9)
			So(view.AverageTime, ShouldAlmostEqual, 25, 1e-9)
		})

		Convey("a repeated event id is acknowledged without effect", func() {
			e := model.Event{EventID: "dup", Kind: model.KindTestCompleted, TestID: "t1", PercentageScore: 90, PassingScore: 50}
			first, err := svc.Submit(ctx, e)
			So(err, ShouldBeNil)
			So(first.Duplicate, ShouldBeFalse)

			second, err := svc.Submit(ctx, e)
			So(err, ShouldBeNil)
			So(second.Duplicate, ShouldBeTrue)
			So(second.Status, ShouldEqual, service.StatusDuplicate)

			So(svc.Wait(ctx), ShouldBeNil)
			view, err := svc.Test(ctx, "t1")
			So(err, ShouldBeNil)
			So(view.CompletedAttempts, ShouldEqual, 1)
			So(view.Grade, ShouldEqual, "A")
		})

		Convey("missing ids are generated", func() {
			ack, err := svc.Submit(ctx, model.Event{Kind: model.KindTestStarted, TestID: "t2"})
			So(err, ShouldBeNil)
			So(ack.EventID, ShouldNotBeEmpty)
		})

		Convey("invalid events are rejected before dedupe", func() {
			_, err := svc.Submit(ctx, model.Event{EventID: "bad", Kind: model.KindSubmissionResult, ChallengeID: "c"})
			So(errors.Is(err, service.ErrInvalidEvent), ShouldBeTrue)

			ack, err := svc.Submit(ctx, model.Event{EventID: "bad", Kind: model.KindSubmissionResult, ChallengeID: "c", SubmissionID: "s", TotalCases: 2, PassedCases: 2, MaxScore: 10})
			So(err, ShouldBeNil)
			So(ack.Duplicate, ShouldBeFalse)
		})

		Convey("unknown aggregates are not found", func() {
			_, err := svc.Plan(ctx, "nope")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			_, err = svc.Skill(ctx, "u", "go")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("stats describe the pipeline", func() {
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["workers"], ShouldEqual, 4)
			So(stats, ShouldContainKey, "aggregates")
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a single tiny partition whose store is stalled", t, func() {
		store := &blockingStore{MemoryStore: repository.NewMemoryStore(), release: make(chan struct{})}
		svc, stop := startService(service.WithStore(store), service.WithPartitions(1), service.WithQueueSize(1))
		ctx := context.Background()

		submit := func(id string) error {
			_, err := svc.Submit(ctx, model.Event{EventID: id, Kind: model.KindQuestionAttempt, QuestionID: "q"})
			return err
		}

		Convey("a full queue returns backpressure and forgets the id", func() {
			// The first event is held by the worker, the second fills the queue.
			So(submit("e1"), ShouldBeNil)
			deadline := time.Now().Add(2 * time.Second)
			for svc.GetStats(ctx)["queueLength"] != 0 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			So(submit("e2"), ShouldBeNil)

			err := submit("e3")
			So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)

			close(store.release)
			So(svc.Wait(ctx), ShouldBeNil)

			So(submit("e3"), ShouldBeNil)
			So(svc.Wait(ctx), ShouldBeNil)
			view, err := svc.Question(ctx, "q")
			So(err, ShouldBeNil)
			So(view.TotalAttempts, ShouldEqual, 3)
			stop()
		})
	})
}

func TestService_FailedApply(t *testing.T) {
	Convey("Given a store that fails the first update", t, func() {
		store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
		store.failures.Store(1)
		svc, stop := startService(service.WithStore(store), service.WithPartitions(1))
		defer stop()
		ctx := context.Background()
		e := model.Event{EventID: "retry-me", Kind: model.KindQuestionAttempt, QuestionID: "q", Correct: true}

		Convey("a retry with the same id is applied instead of deduplicated", func() {
			first, err := svc.Submit(ctx, e)
			So(err, ShouldBeNil)
			So(first.Status, ShouldEqual, service.StatusAccepted)
			So(svc.Wait(ctx), ShouldBeNil)

			_, err = svc.Question(ctx, "q")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

			retry, err := svc.Submit(ctx, e)
			So(err, ShouldBeNil)
			So(retry.Duplicate, ShouldBeFalse)
			So(svc.Wait(ctx), ShouldBeNil)

			view, err := svc.Question(ctx, "q")
			So(err, ShouldBeNil)
			So(view.TotalAttempts, ShouldEqual, 1)

			again, err := svc.Submit(ctx, e)
			So(err, ShouldBeNil)
			So(again.Duplicate, ShouldBeTrue)
		})
	})

	Convey("Given a submission moved to another challenge", t, func() {
		svc, stop := startService(service.WithPartitions(1))
		defer stop()
		ctx := context.Background()
		sub := model.Event{EventID: "s-1", Kind: model.KindSubmissionResult, ChallengeID: "c1", SubmissionID: "s", TotalCases: 1, PassedCases: 1, MaxScore: 10}
		_, err := svc.Submit(ctx, sub)
		So(err, ShouldBeNil)
		So(svc.Wait(ctx), ShouldBeNil)

		moved := sub
		moved.EventID = "s-2"
		moved.ChallengeID = "c2"
		_, err = svc.Submit(ctx, moved)
		So(err, ShouldBeNil)
		So(svc.Wait(ctx), ShouldBeNil)

		Convey("the rejected event keeps its id recorded", func() {
			ack, err := svc.Submit(ctx, moved)
			So(err, ShouldBeNil)
			So(ack.Duplicate, ShouldBeTrue)
		})
	})
}

func TestService_StopIsFinal(t *testing.T) {
	Convey("A stopped service cannot be started again", t, func() {
		svc := service.New()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)
		So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
		So(svc.Stop(ctx), ShouldBeNil)

		_, err := svc.Submit(ctx, model.Event{Kind: model.KindTestStarted, TestID: "t"})
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Submitting before Start fails", t, func() {
		svc := service.New()
		_, err := svc.Submit(context.Background(), model.Event{Kind: model.KindTestStarted, TestID: "t"})
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		So(svc.Stop(context.Background()), ShouldBeNil)
	})
}

func TestService_Helpers(t *testing.T) {
	Convey("Grades, recommendations and attempt scores", t, func() {
		svc := service.New(service.WithMaxRecommendations(2))

		So(svc.Grade(89.9).Grade, ShouldEqual, "B")

		recs := svc.Recommendations([]string{"g1"}, []string{"a1", "a2"}, []string{"c1"}, nil)
		So(len(recs), ShouldEqual, 2)
		So(recs[0].Text, ShouldEqual, "a1")
		So(recs[1].Text, ShouldEqual, "a2")

		all := 10
		recs = svc.Recommendations([]string{"g1"}, []string{"a1"}, []string{"c1"}, &all)
		So(len(recs), ShouldEqual, 3)
		So(recs[1].Text, ShouldEqual, "g1")

		view := svc.ScoreAttempt([]scoring.GradedAnswer{
			{Correct: true, Points: 2},
			{Correct: false, Points: 2, NegativeMarking: 0.5},
		}, 30)
		So(view.MaxPossibleScore, ShouldEqual, 4)
		So(view.Passed, ShouldBeTrue)
	})
}

func TestNewFromConfig(t *testing.T) {
	Convey("NewFromConfig opens the configured store", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.DriverSQLite
		cfg.DatabaseDSN = "file:svc_from_config?mode=memory&cache=shared"

		svc, err := service.NewFromConfig(context.Background(), cfg)
		So(err, ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)

		ctx := context.Background()
		_, err = svc.Submit(ctx, model.Event{EventID: "x", Kind: model.KindSkillObservation, UserID: "u", Skill: "SQL", Level: 65, Source: "assessment"})
		So(err, ShouldBeNil)
		So(svc.Wait(ctx), ShouldBeNil)

		view, err := svc.Skill(ctx, "u", "sql")
		So(err, ShouldBeNil)
		So(view.Trend, ShouldEqual, "new")
		So(view.Proficiency, ShouldEqual, "Intermediate")
		So(svc.Stop(ctx), ShouldBeNil)
	})
}
