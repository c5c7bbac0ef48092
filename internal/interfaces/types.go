// Package interfaces defines shared structures used across the Live Gateway
// components, decoupling the HTTP handlers from the session bridge.
package interfaces

// ErrorMessage pairs an HTTP status code with the underlying error. It is
// how failures travel from the bridge back to the handlers.
type ErrorMessage struct {
	// StatusCode is the HTTP status the failure maps to.
	StatusCode int

	// Error is the underlying error.
	Error error

	// Type is the OpenAI-style error type for the wire envelope, such as
	// "server_error" or "invalid_request_error".
	Type string
}
