package engine

import "errors"

// ErrNotAuthoritative is the panic value raised when a handler that is not the
// authoritative writer is asked to mutate encounter state.
var ErrNotAuthoritative = errors.New("encounter state mutation attempted by a non-authoritative party")

// nonRetryableError wraps an error to signal that retrying the operation
// would append duplicate events (e.g. a fold failure after the journal
// accepted the decision).
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable returns true from IsNonRetryable checks.
func (e *nonRetryableError) NonRetryable() bool { return true }

func wrapNonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsNonRetryable reports whether the error (or any error in its chain)
// signals that the operation must not be retried.
func IsNonRetryable(err error) bool {
	var target interface{ NonRetryable() bool }
	if errors.As(err, &target) {
		return target.NonRetryable()
	}
	return false
}
