package api

import (
	"errors"
	"fmt"

	"github.com/keyhaven/assignment-desk/internal/utils"
)

/*
TransportError wraps network-level failures. They are retryable and
non-destructive: callers keep their last good state and surface a toast,
never a fatal condition.
*/
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is a non-conflict, non-auth failure reported by the backend.
// The message is surfaced verbatim to the operator.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server: %s (%s)", e.Message, e.Code)
}

// IsRetryable reports whether the failure is transient. Only transport
// errors qualify; conflicts and auth failures must not be blindly retried.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsFatalForSession reports whether the desk must re-authenticate.
func IsFatalForSession(err error) bool {
	return errors.Is(err, utils.ErrUnauthorized)
}

// IsConflict reports whether the item was resolved out from under us
// (already responded, or past its response window).
func IsConflict(err error) bool {
	return errors.Is(err, utils.ErrAlreadyResponded) || errors.Is(err, utils.ErrAssignmentExpired)
}
