package service

import (
	"errors"

	"github.com/truthschool/prepscore/internal/adapters/repository"
)

// Sentinel kinds for service errors.
var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrUnknownKind  = errors.New("unknown event kind")
	ErrBackpressure = errors.New("backpressure")
	ErrQueueClosed  = errors.New("queue closed")
	ErrNotStarted   = errors.New("service not started")
	ErrStopped      = errors.New("service stopped")

	// ErrNotFound is returned by the read methods for unknown aggregates.
	ErrNotFound = repository.ErrNotFound
)
