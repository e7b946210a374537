package studyhub

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Match with errors.Is.
var (
	// ErrInvalidCredentials is returned when a login or signup is rejected
	// by the backend. It is never retried.
	ErrInvalidCredentials = errors.New("studyhub: invalid credentials")

	// ErrAuthExpired is returned when the refresh credential is missing or
	// rejected. The session has been torn down by the time callers see it.
	ErrAuthExpired = errors.New("studyhub: authentication expired")
)

// ValidationError is a backend-reported, field-level validation failure.
// Fields maps a field name to its messages; it may be empty, in which case
// Message carries a generic description.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message != "" {
			return "studyhub: validation failed: " + e.Message
		}
		return "studyhub: validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return "studyhub: validation failed: " + strings.Join(parts, ", ")
}

// FieldError returns the first message for a field, or "" if none.
func (e *ValidationError) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// HTTPError is a non-2xx response that is not covered by a more specific
// error. Detail is the backend's message when one could be decoded.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("studyhub: backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("studyhub: backend returned %d", e.StatusCode)
}

// NetworkError is a transport-level failure (the request never produced an
// HTTP response).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("studyhub: request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an HTTP 404. Service-level detail
// lookups translate 404 into an absent value instead, so consumers rarely
// need this directly.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == 404
}
