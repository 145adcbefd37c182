package zillow

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrMissingCredentials is returned when no RapidAPI key is configured.
var ErrMissingCredentials = eris.New("zillow: API key is not configured")

// APIError is a non-2xx (or non-JSON 2xx) response from the API.
type APIError struct {
	StatusCode int
	Message    string
	// Body is the decoded JSON error body, when there was one.
	Body any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zillow: %s (status %d)", e.Message, e.StatusCode)
}

// Status returns the HTTP status code.
func (e *APIError) Status() int {
	return e.StatusCode
}

func newAPIError(status int, body any) *APIError {
	msg := fmt.Sprintf("zillow API request failed with status %d", status)
	if obj, ok := body.(map[string]any); ok {
		if m, ok := obj["message"].(string); ok {
			msg = m
		}
	}
	return &APIError{StatusCode: status, Message: msg, Body: body}
}

// IsMissingCredentials reports whether err is (or wraps) ErrMissingCredentials.
func IsMissingCredentials(err error) bool {
	return errors.Is(err, ErrMissingCredentials)
}
