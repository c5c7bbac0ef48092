// Package client implements the Gemini Live backend client. One LiveSession
// wraps one BidiGenerateContent WebSocket connection: the caller opens the
// session, transmits a single turn, and consumes the ordered event stream
// until a terminal completion, error, or close arrives. Sessions are
// single-use and never pooled.
package client

// EventType identifies one kind of backend session event.
type EventType int

const (
	// EventText carries one partial model-authored text delta.
	EventText EventType = iota

	// EventTurnComplete signals the backend finished the turn. This is the
	// sole success terminal.
	EventTurnComplete

	// EventError carries an explicit error frame from the backend.
	EventError

	// EventClosed signals the connection closed. Whether that is normal
	// depends on whether a turn completion was seen first; the consumer
	// decides.
	EventClosed
)

// Event is one ordered occurrence on a live session. Events for one session
// are delivered strictly in backend order, never coalesced.
type Event struct {
	Type EventType

	// Text is the partial delta for EventText events.
	Text string

	// Err carries the backend message for EventError, or the transport
	// error for an abnormal EventClosed.
	Err error
}

// SessionConfig describes one backend session derived from a chat request.
// Optional generation parameters are forwarded only when the client supplied
// them, so backend defaults are never silently overridden.
type SessionConfig struct {
	// Model is the backend model name, without the "models/" prefix.
	Model string

	// APIKey is the per-request bearer credential, forwarded verbatim and
	// never persisted.
	APIKey string

	// Temperature is forwarded when non-nil.
	Temperature *float64

	// MaxOutputTokens is forwarded when non-nil.
	MaxOutputTokens *int64
}
