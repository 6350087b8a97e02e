package api

import (
	"errors"
	"net/http"
)

// FallbackMessage is shown when the server gave no usable explanation.
const FallbackMessage = "request failed, please try again"

// Sentinel errors matched with errors.Is.
var (
	ErrUnauthorized = errors.New("missing or rejected credential")
	ErrNotFound     = errors.New("resource not found")
)

// Error is a failed API response: a non-2xx status or an envelope with success=false.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// Unwrap maps 401 and 404 onto the package sentinels.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// UserMessage returns the text to show a user for err.
// Server-provided messages are passed through; anything else gets the fallback.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return FallbackMessage
}
