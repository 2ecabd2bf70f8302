package analysis

import "errors"

var (
	ErrValidation         = errors.New("invalid analysis request")
	ErrSubmissionInFlight = errors.New("an analysis is already being submitted")
	ErrStaleResponse      = errors.New("stale analysis response")
	ErrInvalidTransition  = errors.New("invalid analysis transition")
	ErrUnknownMode        = errors.New("unknown input mode")
)

// ValidationError is a request problem detected before any network call.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
