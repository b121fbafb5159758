package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPrompt is returned by NewRequest when the prompt is blank.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrInvalidOptions is wrapped by NewRequest when a generation option is out of range.
	ErrInvalidOptions = errors.New("invalid generation options")
)

// AuthError reports a missing or rejected credential. It is detected
// before any request is sent.
type AuthError struct {
	Provider string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Reason)
}

// HTTPError reports a non-success status from the completion endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}

// NetworkError reports a connection-level failure.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("could not reach %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StreamError reports an error object delivered inside the event stream.
type StreamError struct {
	Code    any
	Message string
}

func (e *StreamError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("stream error (%v): %s", e.Code, e.Message)
	}
	return "stream error: " + e.Message
}
