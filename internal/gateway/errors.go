package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrEmptyResponse   = errors.New("empty response body")
)

// RequestError is a non-2xx response from the API. Detail carries the
// server's message when one could be extracted.
type RequestError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrUnauthenticated) match 401 responses.
func (e *RequestError) Is(target error) bool {
	return target == ErrUnauthenticated && e.Status == http.StatusUnauthorized
}

// Detail returns the server-provided message carried by err, if any.
func Detail(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Detail
	}
	return ""
}

// DetailOr returns the server-provided message carried by err, or fallback.
func DetailOr(err error, fallback string) string {
	if detail := Detail(err); detail != "" {
		return detail
	}
	return fallback
}

// IsAuthRejection reports whether the server refused the credential outright.
func IsAuthRejection(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return reqErr.Status == http.StatusUnauthorized || reqErr.Status == http.StatusForbidden
}
