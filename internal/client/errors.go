// ABOUTME: Error kinds returned by the API client
// ABOUTME: Separates backend-reported failures, transport failures and malformed replies

package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches any *APIError with status 401
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport wraps connection failures, cancellations and timeouts
	ErrTransport = errors.New("transport failure")

	// ErrMalformedResponse wraps replies whose body could not be decoded
	ErrMalformedResponse = errors.New("malformed response")
)

// ErrorResponse is the JSON body the backend sends with failures
type ErrorResponse struct {
	Message string `json:"message"`
}

// APIError is a non-success HTTP status reported by the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// Is reports 401 responses as ErrUnauthorized
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err came from a 401 response
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// BackendMessage returns the message text the backend attached to a failure
func BackendMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
