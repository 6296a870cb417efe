package scoring

import "github.com/truthschool/prepscore/internal/domain/model"

// RecordQuestionAttempt counts one attempt on q. Only attempts that report a
// duration contribute to AverageTime.
func RecordQuestionAttempt(q *model.QuestionStats, correct bool, timeTakenSeconds *float64) {
	q.TotalAttempts++
	if correct {
		q.CorrectAttempts++
	}
	if timeTakenSeconds != nil {
		q.TimedAttempts++
		q.AverageTime = incrementalMean(q.AverageTime, *timeTakenSeconds, q.TimedAttempts)
	}
}

// SuccessRate is correct/total*100, 0 when there were no attempts.
func SuccessRate(correct, total int64) float64 {
	return percent(float64(correct), float64(total))
}

// RecordTestAttemptStarted counts an attempt that has not completed yet.
func RecordTestAttemptStarted(t *model.TestStats) {
	t.TotalAttempts++
}

// RecordTestCompletion counts a completed attempt and folds its score into
// AverageScore with CompletedAttempts as n.
func RecordTestCompletion(t *model.TestStats, percentageScore float64, passed bool, durationSeconds *float64) {
	t.TotalAttempts++
	t.CompletedAttempts++
	t.AverageScore = incrementalMean(t.AverageScore, percentageScore, t.CompletedAttempts)
	if passed {
		t.PassedAttempts++
	}
	if durationSeconds != nil {
		t.TimedCompletions++
		t.AverageDuration = incrementalMean(t.AverageDuration, *durationSeconds, t.TimedCompletions)
	}
}

// CompletionRate is completed/total*100, 0 when nothing was attempted.
func CompletionRate(completed, total int64) float64 {
	return percent(float64(completed), float64(total))
}

// PassRate is passed/completed*100, 0 when nothing completed.
func PassRate(passed, completed int64) float64 {
	return percent(float64(passed), float64(completed))
}

// Passed reports whether a percentage score meets the passing score.
func Passed(percentageScore, passingScore float64) bool {
	return percentageScore >= passingScore
}

// GradedAnswer is one answer within a test attempt.
type GradedAnswer struct {
	Correct         bool    `json:"correct"`
	Points          float64 `json:"points" validate:"gte=0"`
	NegativeMarking float64 `json:"negative_marking" validate:"gte=0"`
}

// AttemptScore is the roll-up of every answer in an attempt.
type AttemptScore struct {
	TotalScore       float64 `json:"total_score"`
	MaxPossibleScore float64 `json:"max_possible_score"`
	QuestionsCorrect int     `json:"questions_correct"`
	PercentageScore  float64 `json:"percentage_score"`
}

// AnswerScore returns the points earned by a single answer. Wrong answers
// cost negativeMarking when it is positive.
func AnswerScore(correct bool, points, negativeMarking float64) float64 {
	switch {
	case correct:
		return points
	case negativeMarking > 0:
		return -negativeMarking
	default:
		return 0
	}
}

// FinalAttemptScore sums the answers of an attempt. PercentageScore is 0
// when nothing was worth any points.
func FinalAttemptScore(answers []GradedAnswer) AttemptScore {
	var s AttemptScore
	for _, a := range answers {
		s.TotalScore += AnswerScore(a.Correct, a.Points, a.NegativeMarking)
		s.MaxPossibleScore += a.Points
		if a.Correct {
			s.QuestionsCorrect++
		}
	}
	if s.MaxPossibleScore > 0 {
		s.PercentageScore = s.TotalScore / s.MaxPossibleScore * 100
	}
	return s
}
