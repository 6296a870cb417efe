package scoring

import (
	"math"

	"github.com/truthschool/prepscore/internal/domain/model"
)

const (
	// targetHeadroom is how far above the overall score a target is set.
	targetHeadroom = 20.0
	maxScore       = 100.0
)

// RecordCategoryScore folds a new data point into the named category of f,
// creating it on first sight. ImprovementSinceLast is the change of the
// category mean caused by this point. A supplied confidence replaces the
// stored one.
func RecordCategoryScore(f *model.Feedback, category string, score float64, confidence *float64) {
	for i := range f.Categories {
		c := &f.Categories[i]
		if c.Category != category {
			continue
		}
		prev := c.Score
		c.DataPointsCount++
		c.Score = incrementalMean(prev, score, c.DataPointsCount)
		delta := c.Score - prev
		c.ImprovementSinceLast = &delta
		if confidence != nil {
			v := *confidence
			c.ConfidenceLevel = &v
		}
		return
	}
	c := model.CategoryScore{Category: category, Score: score, DataPointsCount: 1}
	if confidence != nil {
		v := *confidence
		c.ConfidenceLevel = &v
	}
	f.Categories = append(f.Categories, c)
}

// FeedbackOverall is the mean of the category scores, 0 with none.
func FeedbackOverall(f *model.Feedback) float64 {
	var m Mean
	for _, c := range f.Categories {
		m.Add(c.Score)
	}
	return m.Value
}

// TargetScore suggests the next overall score to aim for.
func TargetScore(overall float64) float64 {
	return math.Min(overall+targetHeadroom, maxScore)
}

// OverallScore is the mean of the sub-scores that are present, 0 when none
// are.
func OverallScore(subScores ...*float64) float64 {
	var m Mean
	for _, s := range subScores {
		if s != nil {
			m.Add(*s)
		}
	}
	return m.Value
}

// RecordInterviewEvaluation folds one evaluated question into the session.
func RecordInterviewEvaluation(s *model.InterviewStats, overall float64) {
	s.QuestionsEvaluated++
	s.AverageScore = incrementalMean(s.AverageScore, overall, s.QuestionsEvaluated)
}
