package credential

import "errors"

var (
	ErrEmptyToken     = errors.New("empty session token")
	ErrInvalidBaseURL = errors.New("invalid api base url")
)
