package testevents

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Submission retry constants. Backpressure and rate limiting answers are
// retried with a linear backoff.
const (
	MaxSubmitRetries = 5
	SubmitRetryDelay = 50 * time.Millisecond
)

// Runner configuration constants.
const (
	PollInterval         = 250 * time.Millisecond
	PercentageMultiplier = 100
	FloatTolerance       = 1e-6
	PlanActions          = 10
)
