package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("aggregate not found")
	ErrNoChange      = errors.New("no change")
	ErrUnknownDriver = errors.New("unknown store driver")
)
