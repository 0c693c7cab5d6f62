package api

import (
	"errors"
	"fmt"
)

// ErrTransient marks failures worth retrying on a later poll: network errors,
// 5xx responses, and malformed envelopes. The client itself never retries;
// the refresh loop simply polls again.
var ErrTransient = errors.New("transient service failure")

// transientf wraps a formatted error so it matches ErrTransient under
// errors.Is while keeping the underlying cause in the chain.
func transientf(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrTransient, fmt.Errorf(format, args...))
}

// IsTransient reports whether err is a retry-on-next-poll failure.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
