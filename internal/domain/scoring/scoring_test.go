package scoring_test

import (
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/truthschool/prepscore/internal/domain/model"
	"github.com/truthschool/prepscore/internal/domain/scoring"
)

const tolerance = 1e-9

func ptr(v float64) *float64 { return &v }

func TestMean(t *testing.T) {
	Convey("Given a sequence of durations", t, func() {
		times := []float64{12.5, 3, 44.25, 0.1, 19, 7.75, 1000, 0.003}

		Convey("When folded incrementally", func() {
			var m scoring.Mean
			sum := 0.0
			for i, x := range times {
				m.Add(x)
				sum += x
				So(m.Value, ShouldAlmostEqual, sum/float64(i+1), tolerance)
			}

			Convey("Then every observation is counted", func() {
				So(m.Count, ShouldEqual, int64(len(times)))
			})
		})

		Convey("When the accumulator is fresh", func() {
			var m scoring.Mean
			m.Add(42)
			So(m.Value, ShouldEqual, 42)
		})
	})
}

func TestRecordQuestionAttempt(t *testing.T) {
	Convey("Given an empty question record", t, func() {
		q := &model.QuestionStats{QuestionID: "q1"}

		Convey("Then the success rate is zero", func() {
			So(scoring.SuccessRate(q.CorrectAttempts, q.TotalAttempts), ShouldEqual, 0)
		})

		Convey("When mixed attempts are recorded", func() {
			outcomes := []bool{true, false, true, true, false, false, true}
			durations := []*float64{ptr(10), ptr(20), nil, ptr(30), nil, ptr(40), ptr(50)}
			for i, ok := range outcomes {
				scoring.RecordQuestionAttempt(q, ok, durations[i])
				So(q.CorrectAttempts, ShouldBeLessThanOrEqualTo, q.TotalAttempts)
			}

			Convey("Then counts reflect every attempt", func() {
				So(q.TotalAttempts, ShouldEqual, 7)
				So(q.CorrectAttempts, ShouldEqual, 4)
				So(scoring.SuccessRate(q.CorrectAttempts, q.TotalAttempts), ShouldAlmostEqual, 100*4.0/7.0, tolerance)
			})

			Convey("Then untimed attempts do not dilute the average time", func() {
				So(q.TimedAttempts, ShouldEqual, 5)
				So(q.AverageTime, ShouldAlmostEqual, 30, tolerance)
			})
		})
	})
}

func TestRecordTestCompletion(t *testing.T) {
	Convey("Given a test with started and completed attempts", t, func() {
		ts := &model.TestStats{TestID: "t1"}
		scoring.RecordTestAttemptStarted(ts)
		scoring.RecordTestCompletion(ts, 80, scoring.Passed(80, 70), ptr(600))
		scoring.RecordTestCompletion(ts, 60, scoring.Passed(60, 70), nil)

		Convey("Then the average score uses completed attempts as n", func() {
			So(ts.CompletedAttempts, ShouldEqual, 2)
			So(ts.AverageScore, ShouldAlmostEqual, 70, tolerance)
		})

		Convey("Then completion and pass rates are derived", func() {
			So(ts.TotalAttempts, ShouldEqual, 3)
			So(scoring.CompletionRate(ts.CompletedAttempts, ts.TotalAttempts), ShouldAlmostEqual, 200.0/3.0, tolerance)
			So(scoring.PassRate(ts.PassedAttempts, ts.CompletedAttempts), ShouldEqual, 50)
		})

		Convey("Then only timed completions shape the duration", func() {
			So(ts.TimedCompletions, ShouldEqual, 1)
			So(ts.AverageDuration, ShouldEqual, 600)
		})
	})

	Convey("Given no attempts", t, func() {
		So(scoring.CompletionRate(0, 0), ShouldEqual, 0)
		So(scoring.PassRate(0, 0), ShouldEqual, 0)
	})

	Convey("Given a score equal to the passing score", t, func() {
		So(scoring.Passed(70, 70), ShouldBeTrue)
		So(scoring.Passed(69.99, 70), ShouldBeFalse)
	})
}

func TestFinalAttemptScore(t *testing.T) {
	Convey("Given answers with negative marking", t, func() {
		answers := []scoring.GradedAnswer{
			{Correct: true, Points: 10},
			{Correct: false, Points: 10, NegativeMarking: 2.5},
			{Correct: false, Points: 5},
			{Correct: true, Points: 5},
		}
		s := scoring.FinalAttemptScore(answers)

		So(s.TotalScore, ShouldEqual, 12.5)
		So(s.MaxPossibleScore, ShouldEqual, 30)
		So(s.QuestionsCorrect, ShouldEqual, 2)
		So(s.PercentageScore, ShouldAlmostEqual, 12.5/30*100, tolerance)
	})

	Convey("Given no answers", t, func() {
		s := scoring.FinalAttemptScore(nil)
		So(s.PercentageScore, ShouldEqual, 0)
		So(s.MaxPossibleScore, ShouldEqual, 0)
	})
}

func TestRecordSubmissionResult(t *testing.T) {
	Convey("Given a challenge worth 50 points", t, func() {
		const maxScore = 50.0

		Convey("When every case passes", func() {
			out := scoring.RecordSubmissionResult(10, 10, maxScore)
			So(out.Status, ShouldEqual, model.SubmissionCompleted)
			So(out.Score, ShouldEqual, maxScore)
			So(out.Successful, ShouldBeTrue)
			So(out.SuccessRate, ShouldEqual, 100)
		})

		Convey("When no case passes", func() {
			out := scoring.RecordSubmissionResult(10, 0, maxScore)
			So(out.Status, ShouldEqual, model.SubmissionFailed)
			So(out.Score, ShouldEqual, 0)
			So(out.Successful, ShouldBeFalse)
		})

		Convey("When some cases pass", func() {
			out := scoring.RecordSubmissionResult(10, 4, maxScore)
			So(out.Status, ShouldEqual, model.SubmissionCompleted)
			So(out.Score, ShouldAlmostEqual, 0.4*maxScore, tolerance)
			So(out.Successful, ShouldBeFalse)
		})

		Convey("When there are no cases", func() {
			out := scoring.RecordSubmissionResult(0, 0, maxScore)
			So(out.Score, ShouldEqual, 0)
			So(out.SuccessRate, ShouldEqual, 0)
			So(out.Successful, ShouldBeFalse)
		})
	})

	Convey("Given a challenge roll-up", t, func() {
		c := &model.ChallengeStats{ChallengeID: "c1"}
		scoring.RecordChallengeSubmission(c, true)
		scoring.RecordChallengeSubmission(c, false)
		So(c.TotalSubmissions, ShouldEqual, 2)
		So(c.SuccessfulSubmissions, ShouldEqual, 1)
	})
}

func TestUpdateSkillLevel(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given a new skill progress", t, func() {
		p := scoring.NewSkillProgress("u1", "Go", 50, "assessment", created)

		So(p.Skill, ShouldEqual, "go")
		So(p.PreviousLevel, ShouldBeNil)
		So(p.Evidence, ShouldHaveLength, 1)
		So(scoring.TrendDirection(p.CurrentLevel, p.PreviousLevel), ShouldEqual, scoring.TrendNew)

		Convey("When updated two weeks later", func() {
			scoring.UpdateSkillLevel(p, 70, "challenge", created.Add(14*24*time.Hour))

			Convey("Then the level is replaced and the prior kept", func() {
				So(p.CurrentLevel, ShouldEqual, 70)
				So(*p.PreviousLevel, ShouldEqual, 50)
			})

			Convey("Then evidence is appended in order", func() {
				So(p.Evidence, ShouldHaveLength, 2)
				So(p.Evidence[1].Source, ShouldEqual, "challenge")
				So(p.Evidence[1].Level, ShouldEqual, 70)
			})

			Convey("Then the weekly rate uses elapsed weeks", func() {
				So(p.ImprovementRatePerWeek, ShouldAlmostEqual, 10, tolerance)
			})
		})

		Convey("When updated on the same day", func() {
			p.ImprovementRatePerWeek = 3
			scoring.UpdateSkillLevel(p, 90, "test", created.Add(20*time.Hour))

			Convey("Then the rate is left unchanged", func() {
				So(p.ImprovementRatePerWeek, ShouldEqual, 3)
				So(p.CurrentLevel, ShouldEqual, 90)
			})
		})

		Convey("When the observation predates creation", func() {
			scoring.UpdateSkillLevel(p, 10, "test", created.Add(-72*time.Hour))
			So(p.ImprovementRatePerWeek, ShouldEqual, 0)
			So(math.IsInf(p.ImprovementRatePerWeek, 0), ShouldBeFalse)
		})

		Convey("When practice is logged", func() {
			at := created.Add(time.Hour)
			scoring.AddPracticeTime(p, 30, at)
			scoring.AddPracticeTime(p, 15, at)
			So(p.TotalPracticeMinutes, ShouldEqual, 45)
			So(p.ActivitiesCompleted, ShouldEqual, 2)
			So(*p.LastActivityAt, ShouldEqual, at)
		})
	})
}

func TestTrendDirection(t *testing.T) {
	Convey("Given current and previous levels", t, func() {
		So(scoring.TrendDirection(80, ptr(70)), ShouldEqual, scoring.TrendImproving)
		So(scoring.TrendDirection(70, ptr(80)), ShouldEqual, scoring.TrendDeclining)
		So(scoring.TrendDirection(72, ptr(70)), ShouldEqual, scoring.TrendStable)
		So(scoring.TrendDirection(80, nil), ShouldEqual, scoring.TrendNew)

		Convey("Then the band edges are stable", func() {
			So(scoring.TrendDirection(75, ptr(70)), ShouldEqual, scoring.TrendStable)
			So(scoring.TrendDirection(65, ptr(70)), ShouldEqual, scoring.TrendStable)
		})
	})
}

func TestGrades(t *testing.T) {
	Convey("Given letter grade boundaries", t, func() {
		So(scoring.LetterGrade(90), ShouldEqual, "A")
		So(scoring.LetterGrade(89.9), ShouldEqual, "B")
		So(scoring.LetterGrade(70), ShouldEqual, "C")
		So(scoring.LetterGrade(60), ShouldEqual, "D")
		So(scoring.LetterGrade(59.9), ShouldEqual, "F")
	})

	Convey("Given performance level boundaries", t, func() {
		So(scoring.PerformanceLevel(95), ShouldEqual, scoring.PerformanceExcellent)
		So(scoring.PerformanceLevel(80), ShouldEqual, scoring.PerformanceGood)
		So(scoring.PerformanceLevel(79.9), ShouldEqual, scoring.PerformanceSatisfactory)
		So(scoring.PerformanceLevel(60), ShouldEqual, scoring.PerformanceNeedsImprovement)
		So(scoring.PerformanceLevel(0), ShouldEqual, scoring.PerformancePoor)
	})

	Convey("Given proficiency boundaries", t, func() {
		So(scoring.ProficiencyLabel(90), ShouldEqual, "Expert")
		So(scoring.ProficiencyLabel(85), ShouldEqual, "Advanced")
		So(scoring.ProficiencyLabel(70), ShouldEqual, "Proficient")
		So(scoring.ProficiencyLabel(60), ShouldEqual, "Intermediate")
		So(scoring.ProficiencyLabel(40), ShouldEqual, "Developing")
		So(scoring.ProficiencyLabel(39.9), ShouldEqual, "Beginner")
	})
}

func TestTopRecommendations(t *testing.T) {
	Convey("Given pools with mixed priorities", t, func() {
		pools := []scoring.RecommendationPool{
			{Source: "a", Priority: scoring.PriorityLow, Items: []string{"l1", "l2"}},
			{Source: "b", Priority: scoring.PriorityMedium, Items: []string{"m1"}},
			{Source: "c", Priority: scoring.PriorityHigh, Items: []string{"h1", "h2"}},
			{Source: "d", Priority: scoring.PriorityMedium, Items: []string{"m2"}},
			{Source: "e", Priority: "urgent", Items: []string{"u1"}},
		}

		Convey("When the limit covers everything", func() {
			got := scoring.TopRecommendations(pools, 10)
			texts := make([]string, 0, len(got))
			for _, r := range got {
				texts = append(texts, r.Text)
			}

			Convey("Then tiers are ordered and stable within a tier", func() {
				So(texts, ShouldResemble, []string{"h1", "h2", "m1", "m2", "l1", "l2", "u1"})
			})
		})

		Convey("When the limit truncates", func() {
			got := scoring.TopRecommendations(pools, 3)
			So(got, ShouldHaveLength, 3)
			So(got[2].Text, ShouldEqual, "m1")
			So(got[2].Source, ShouldEqual, "b")
		})

		Convey("When the limit is not positive", func() {
			So(scoring.TopRecommendations(pools, 0), ShouldBeEmpty)
			So(scoring.TopRecommendations(pools, -1), ShouldBeEmpty)
		})
	})

	Convey("Given the resume pools", t, func() {
		pools := scoring.ResumeRecommendationPools(
			[]string{"quantify impact"},
			[]string{"add keywords", "use standard headings"},
			[]string{"trim summary"},
		)
		got := scoring.TopRecommendations(pools, 5)

		Convey("Then ATS advice comes first", func() {
			So(got[0].Source, ShouldEqual, scoring.SourceATS)
			So(got[1].Source, ShouldEqual, scoring.SourceATS)
			So(got[2].Text, ShouldEqual, "quantify impact")
			So(got[3].Text, ShouldEqual, "trim summary")
		})
	})
}

func TestFeedbackCategories(t *testing.T) {
	Convey("Given an empty feedback", t, func() {
		f := &model.Feedback{FeedbackID: "f1"}
		So(scoring.FeedbackOverall(f), ShouldEqual, 0)

		Convey("When category scores arrive", func() {
			scoring.RecordCategoryScore(f, model.CategoryCommunication, 70, ptr(0.5))
			scoring.RecordCategoryScore(f, model.CategoryCodingAbility, 90, nil)
			scoring.RecordCategoryScore(f, model.CategoryCommunication, 80, nil)

			Convey("Then categories keep first-seen order", func() {
				So(f.Categories, ShouldHaveLength, 2)
				So(f.Categories[0].Category, ShouldEqual, model.CategoryCommunication)
				So(f.Categories[1].Category, ShouldEqual, model.CategoryCodingAbility)
			})

			Convey("Then a repeated category folds into its mean", func() {
				c := f.Categories[0]
				So(c.DataPointsCount, ShouldEqual, 2)
				So(c.Score, ShouldAlmostEqual, 75, tolerance)
				So(*c.ImprovementSinceLast, ShouldAlmostEqual, 5, tolerance)
				So(*c.ConfidenceLevel, ShouldEqual, 0.5)
			})

			Convey("Then a first data point has no improvement", func() {
				So(f.Categories[1].ImprovementSinceLast, ShouldBeNil)
			})

			Convey("Then the overall score and target follow", func() {
				So(scoring.FeedbackOverall(f), ShouldAlmostEqual, 82.5, tolerance)
				So(scoring.TargetScore(82.5), ShouldEqual, 100)
				So(scoring.TargetScore(50), ShouldEqual, 70)
			})
		})
	})
}

func TestInterviewEvaluation(t *testing.T) {
	Convey("Given interview sub-scores", t, func() {
		So(scoring.OverallScore(ptr(80), nil, ptr(60), nil), ShouldEqual, 70)
		So(scoring.OverallScore(nil, nil), ShouldEqual, 0)
		So(scoring.OverallScore(), ShouldEqual, 0)

		Convey("When folded into a session", func() {
			s := &model.InterviewStats{SessionID: "s1"}
			scoring.RecordInterviewEvaluation(s, 70)
			scoring.RecordInterviewEvaluation(s, 90)
			So(s.QuestionsEvaluated, ShouldEqual, 2)
			So(s.AverageScore, ShouldAlmostEqual, 80, tolerance)
		})
	})
}

func TestPlanProgress(t *testing.T) {
	Convey("Given a plan with four actions", t, func() {
		p := &model.PlanProgress{PlanID: "p1", TotalActions: 4}
		So(scoring.PlanPhase(p.CompletionPercentage), ShouldEqual, scoring.PhaseGettingStarted)

		Convey("When actions complete, including a repeat", func() {
			scoring.MarkActionCompleted(p, "a1")
			scoring.MarkActionCompleted(p, "a2")
			scoring.MarkActionCompleted(p, "a2")

			So(p.CompletedActionIDs, ShouldResemble, []string{"a1", "a2"})
			So(p.CompletionPercentage, ShouldEqual, 50)
			So(scoring.PlanPhase(p.CompletionPercentage), ShouldEqual, scoring.PhaseMakingProgress)
		})

		Convey("When every action completes", func() {
			for _, id := range []string{"a1", "a2", "a3", "a4"} {
				scoring.MarkActionCompleted(p, id)
			}
			So(scoring.PlanPhase(p.CompletionPercentage), ShouldEqual, scoring.PhaseCompleted)
		})
	})

	Convey("Given a plan without a known size", t, func() {
		p := &model.PlanProgress{PlanID: "p2"}
		scoring.MarkActionCompleted(p, "a1")
		So(p.CompletionPercentage, ShouldEqual, 0)
	})

	Convey("Given a plan whose size changes after an action completed", t, func() {
		p := &model.PlanProgress{PlanID: "p3", TotalActions: 2}
		scoring.MarkActionCompleted(p, "a1")
		So(p.CompletionPercentage, ShouldEqual, 50)

		Convey("a repeated action recomputes against the new size", func() {
			p.TotalActions = 4
			scoring.MarkActionCompleted(p, "a1")
			So(p.CompletedActionIDs, ShouldResemble, []string{"a1"})
			So(p.CompletionPercentage, ShouldEqual, 25)
		})

		Convey("a size below the completed count caps at 100", func() {
			p.TotalActions = 1
			scoring.MarkActionCompleted(p, "a2")
			So(len(p.CompletedActionIDs), ShouldEqual, 2)
			So(p.CompletionPercentage, ShouldEqual, 100)
			So(scoring.PlanPhase(p.CompletionPercentage), ShouldEqual, scoring.PhaseCompleted)
		})
	})

	Convey("Given phase boundaries", t, func() {
		So(scoring.PlanPhase(24.9), ShouldEqual, scoring.PhaseGettingStarted)
		So(scoring.PlanPhase(25), ShouldEqual, scoring.PhaseBuildingMomentum)
		So(scoring.PlanPhase(74.9), ShouldEqual, scoring.PhaseMakingProgress)
		So(scoring.PlanPhase(99.9), ShouldEqual, scoring.PhaseNearlyComplete)
	})
}
