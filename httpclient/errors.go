package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when the server responds with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

// Error returns the string representation of the error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is a 409 response.
func IsConflict(err error) bool {
	return IsStatus(err, http.StatusConflict)
}

// IsRetryable reports whether the error is worth retrying: connection
// failures, timeouts, 429 and 5xx responses. 4xx responses other than 429
// will not succeed on retry.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	// Transport-level failures (dial, reset, deadline) are transient.
	return true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
