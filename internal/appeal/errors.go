package appeal

import (
	"errors"
	"net/http"
)

// Error is a workflow failure with the HTTP status it maps to. Message is
// safe to show to callers.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code.
func (e *Error) Status() int { return e.StatusCode }

func fail(status int, message string, err error) *Error {
	return &Error{StatusCode: status, Message: message, Err: err}
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
