package dedupe

import "errors"

// ErrEmptyID is returned when an event id is empty.
var ErrEmptyID = errors.New("dedupe: empty event id")
