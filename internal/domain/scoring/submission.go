package scoring

import "github.com/truthschool/prepscore/internal/domain/model"

// SubmissionOutcome is the scored result of running a submission's cases.
type SubmissionOutcome struct {
	Score       float64
	Status      model.SubmissionStatus
	SuccessRate float64
	Successful  bool
}

// RecordSubmissionResult scores a judged submission. Passing every case, or
// any case, makes the submission completed, so a partial pass is completed
// with a partial score. Zero passes out of a non-empty run fail.
func RecordSubmissionResult(totalCases, passedCases int, maxScore float64) SubmissionOutcome {
	out := SubmissionOutcome{Status: model.SubmissionFailed}
	if totalCases > 0 {
		out.Score = float64(passedCases) / float64(totalCases) * maxScore
	}
	out.SuccessRate = percent(float64(passedCases), float64(totalCases))
	if passedCases == totalCases || passedCases > 0 {
		out.Status = model.SubmissionCompleted
	}
	out.Successful = out.Status == model.SubmissionCompleted && totalCases > 0 && passedCases == totalCases
	return out
}

// ApplySubmissionOutcome copies a scored outcome onto its submission record.
func ApplySubmissionOutcome(s *model.Submission, totalCases, passedCases int, maxScore float64, out SubmissionOutcome) {
	s.TotalCases = totalCases
	s.PassedCases = passedCases
	s.MaxScore = maxScore
	s.Score = out.Score
	s.Status = out.Status
}

// RecordChallengeSubmission counts a submission against its challenge.
func RecordChallengeSubmission(c *model.ChallengeStats, successful bool) {
	c.TotalSubmissions++
	if successful {
		c.SuccessfulSubmissions++
	}
}
