package vangoedge

import "fmt"

// HTTPError is an error with an associated HTTP status code. Server functions
// can return one (directly or wrapped) to control the error status the
// adapter writes; plain errors map to 500.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HTTPError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code for this error.
func (e *HTTPError) StatusCode() int { return e.Code }
