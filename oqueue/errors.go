package oqueue

import (
	"fmt"

	"github.com/sensorfusion/multiqueue/core"
)

// FatalError marks a programmer error detected by the merger:
// double-registration, finishing an unknown or already-finished
// stream, an out-of-order push, re-entrant dispatch, or tearing down
// the merger with an unfinished stream still registered. A panic
// carrying one of these, rather than an ignorable error return, since
// there is no recovery path for any of these conditions.
type FatalError struct {
	Key     core.StreamKey
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("oqueue: fatal: %s (key=%s)", e.Message, e.Key)
}

func fatalf(key core.StreamKey, format string, args ...any) {
	panic(&FatalError{Key: key, Message: fmt.Sprintf(format, args...)})
}
