package client

import (
	"fmt"
	"net/http"
)

// BackendError is returned by any client operation on a transport failure or
// a server-side rejection. A transport failure carries Err and a zero
// StatusCode; a rejection carries the HTTP status and the response body.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend transport error: %v", e.Err)
	}
	return fmt.Sprintf("backend rejected request (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap returns the underlying transport error, if any
func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether the backend does not know the record
func (e *BackendError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsTransport reports whether the backend could not be reached at all
func (e *BackendError) IsTransport() bool {
	return e.Err != nil
}
