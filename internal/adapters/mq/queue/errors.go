package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrFull   = errors.New("queue: partition full")
	ErrClosed = errors.New("queue: closed")
)
