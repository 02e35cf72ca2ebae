package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons. The string form doubles as the wire
// error code, so controllers can do errors.Is(err, ErrXYZ) and clients
// can match the code coming back off the wire. The wire carries the
// generic not_found code regardless of resource, so the resource-scoped
// sentinels wrap ErrNotFound and the client reports ErrNotFound.
var (
	ErrAlreadyResponded   = errors.New("already_responded")
	ErrAssignmentExpired  = errors.New("assignment_expired")
	ErrNotFound           = errors.New("not_found")
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment", ErrNotFound)
	ErrPropertyNotFound   = fmt.Errorf("%w: property", ErrNotFound)
	ErrNoCandidateAgents  = errors.New("no_candidate_agents")
	ErrAlreadyAssigned    = errors.New("already_assigned")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrActionInFlight     = errors.New("action_in_flight")
	ErrInvalidPayload     = errors.New("invalid_payload")

	// External service failures (Twilio, SendGrid)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)

// AppError carries structured failure information from services to HTTP handlers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
