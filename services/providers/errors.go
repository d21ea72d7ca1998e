package providers

import (
	"errors"
	"fmt"
)

// TransportError is returned when the storefront could not be reached at all
// (DNS, connection refused, timeout, cancelled context).
type TransportError struct {
	// Platform that generated the error
	Platform string

	// Op is the provider operation (e.g., "getCart")
	Op string

	// Cause is the underlying client error
	Cause error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport error: %v", e.Platform, e.Op, e.Cause)
}

// Unwrap implements error unwrapping
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPStatusError is returned when the storefront answered with a status
// outside 200-299.
type HTTPStatusError struct {
	Platform   string
	Op         string
	StatusCode int

	// Body is a truncated copy of the response body
	Body string
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP error! status: %d", e.Platform, e.Op, e.StatusCode)
}

// IsTransportError reports whether err is or wraps a TransportError
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// StatusCode extracts the HTTP status of a wrapped HTTPStatusError
func StatusCode(err error) (int, bool) {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}
