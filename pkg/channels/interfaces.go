package channels

import (
	"context"
	"errors"
	"fmt"
)

// Channel delivers one rendered message to a configured destination.
type Channel interface {
	ID() string
	Type() string
	// Send delivers the message and returns a provider receipt id when one
	// is available. Ordinary delivery failures come back as *SendError;
	// they never panic and never abort sibling sends.
	Send(ctx context.Context, msg Message) (string, error)
}

// SendError is a delivery failure with a retryability classification.
// Terminal failures (bad credentials, malformed destination) must not be
// retried within the run; everything else is presumed transient.
type SendError struct {
	Reason   string
	Terminal bool
}

func (e *SendError) Error() string { return e.Reason }

// Retryable reports whether err may be retried within the run. Unknown
// error kinds (plain network errors and such) count as retryable.
func Retryable(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return !se.Terminal
	}
	return true
}

func terminalf(format string, args ...any) *SendError {
	return &SendError{Reason: fmt.Sprintf(format, args...), Terminal: true}
}

func transientf(format string, args ...any) *SendError {
	return &SendError{Reason: fmt.Sprintf(format, args...)}
}
