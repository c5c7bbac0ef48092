// Package bridge converts one stateless chat-completion request into one
// single-use backend streaming session and translates the session's ordered
// events back into OpenAI-compatible response frames.
//
// Each request opens a fresh, single-turn backend context: only the final
// message of the conversation is transmitted, marked end-of-turn, and prior
// turns are discarded server-side. This matches the gateway's stateless
// design and is deliberate, not an omission.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livegateway/livegateway/internal/client"
	"github.com/livegateway/livegateway/internal/config"
	"github.com/livegateway/livegateway/internal/interfaces"
	log "github.com/sirupsen/logrus"
)

// StatusClientClosedRequest reports a downstream disconnect. Nothing can be
// written to the client at that point; the status exists for logging only.
const StatusClientClosedRequest = 499

// Session is one established backend session as the bridge consumes it.
type Session interface {
	// SendTurn transmits one end-of-turn message.
	SendTurn(role, text string) error

	// Events returns the ordered backend event stream.
	Events() <-chan client.Event

	// Close tears the session down. Safe on every terminal path.
	Close()
}

// SessionOpener establishes backend sessions. The production implementation
// dials the Live WebSocket API; tests substitute fakes.
type SessionOpener interface {
	Open(ctx context.Context, sc client.SessionConfig) (Session, error)
}

// sessionState tracks the bridge's per-request lifecycle.
type sessionState int

const (
	stateIdle sessionState = iota
	stateOpening
	stateStreaming
	stateFinalizing
	stateFailed
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateOpening:
		return "opening"
	case stateStreaming:
		return "streaming"
	case stateFinalizing:
		return "finalizing"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// Bridge adapts chat requests onto backend sessions. It is stateless across
// requests and safe for concurrent use.
type Bridge struct {
	cfg    *config.Config
	opener SessionOpener
}

// New creates a bridge backed by the given session opener.
func New(cfg *config.Config, opener SessionOpener) *Bridge {
	return &Bridge{
		cfg:    cfg,
		opener: opener,
	}
}

// NewOpener returns the production session opener dialing the Live backend.
func NewOpener(cfg *config.Config) SessionOpener {
	return dialerOpener{dialer: client.NewDialer(cfg)}
}

type dialerOpener struct {
	dialer *client.Dialer
}

func (o dialerOpener) Open(ctx context.Context, sc client.SessionConfig) (Session, error) {
	session, err := o.dialer.Open(ctx, sc)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Complete handles one non-streaming request: it runs the session to
// completion and returns a single JSON completion object whose message
// content is the accumulated response.
func (b *Bridge) Complete(ctx context.Context, req *ChatRequest, apiKey string) ([]byte, *interfaces.ErrorMessage) {
	completionID := newCompletionID()
	created := time.Now().Unix()

	tctx, cancel := b.sessionContext(ctx)
	defer cancel()

	content, errMsg := b.run(tctx, req, apiKey, nil)
	if errMsg != nil {
		return nil, errMsg
	}
	return completionResponse(completionID, created, req.Model, content), nil
}

// Stream handles one streaming request. Each partial-text backend event is
// emitted immediately as one chunk carrying exactly that delta; completion
// produces a terminal empty-delta chunk with finish reason "stop". The
// caller appends the stream-termination sentinel after the data channel
// closes cleanly.
func (b *Bridge) Stream(ctx context.Context, req *ChatRequest, apiKey string) (<-chan []byte, <-chan *interfaces.ErrorMessage) {
	dataChan := make(chan []byte)
	errChan := make(chan *interfaces.ErrorMessage, 1)

	go func() {
		defer close(dataChan)
		defer close(errChan)

		completionID := newCompletionID()
		created := time.Now().Unix()

		tctx, cancel := b.sessionContext(ctx)
		defer cancel()

		emit := func(frame []byte) bool {
			select {
			case dataChan <- frame:
				return true
			case <-tctx.Done():
				return false
			}
		}

		_, errMsg := b.run(tctx, req, apiKey, func(delta string) bool {
			return emit(deltaChunk(completionID, created, req.Model, delta))
		})
		if errMsg != nil {
			errChan <- errMsg
			return
		}

		emit(stopChunk(completionID, created, req.Model))
	}()

	return dataChan, errChan
}

// sessionContext bounds one backend session. A non-responding backend fails
// the request with a timeout instead of suspending the bridge indefinitely.
func (b *Bridge) sessionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(b.cfg.ResponseTimeout)*time.Second)
}

// run drives one session through its full lifecycle: open, transmit the
// final message, consume events in backend order, and close. The onDelta
// callback, when non-nil, receives each partial text the moment it arrives;
// the text is always appended to the accumulating buffer regardless. The
// session is explicitly closed on every return path.
func (b *Bridge) run(ctx context.Context, req *ChatRequest, apiKey string, onDelta func(delta string) bool) (string, *interfaces.ErrorMessage) {
	state := stateIdle
	transition := func(next sessionState) {
		log.Debugf("bridge session %s -> %s", state, next)
		state = next
	}

	transition(stateOpening)
	session, err := b.opener.Open(ctx, client.SessionConfig{
		Model:           req.Model,
		APIKey:          apiKey,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	})
	if err != nil {
		transition(stateFailed)
		if ctxErr := b.contextError(ctx); ctxErr != nil {
			return "", ctxErr
		}
		return "", backendError(fmt.Errorf("failed to open backend session: %v", err))
	}
	defer func() {
		session.Close()
		transition(stateClosed)
	}()

	final := req.FinalMessage()
	if err = session.SendTurn(backendRole(final.Role), final.Content); err != nil {
		transition(stateFailed)
		return "", backendError(err)
	}

	transition(stateStreaming)
	var buffer strings.Builder

	for {
		select {
		case <-ctx.Done():
			transition(stateFailed)
			return "", b.contextError(ctx)

		case ev, ok := <-session.Events():
			if !ok {
				transition(stateFailed)
				return "", backendError(fmt.Errorf("connection closed before completion"))
			}

			switch ev.Type {
			case client.EventText:
				buffer.WriteString(ev.Text)
				if onDelta != nil && !onDelta(ev.Text) {
					transition(stateFailed)
					return "", b.contextError(ctx)
				}

			case client.EventTurnComplete:
				transition(stateFinalizing)
				return buffer.String(), nil

			case client.EventError:
				transition(stateFailed)
				return "", backendError(ev.Err)

			case client.EventClosed:
				transition(stateFailed)
				if ev.Err != nil {
					return "", backendError(fmt.Errorf("connection closed before completion: %v", ev.Err))
				}
				return "", backendError(fmt.Errorf("connection closed before completion"))
			}
		}
	}
}

// contextError maps a finished context onto the matching error message: a
// deadline expiry is a fatal backend timeout, a cancellation means the
// client went away.
func (b *Bridge) contextError(ctx context.Context) *interfaces.ErrorMessage {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return &interfaces.ErrorMessage{
			StatusCode: http.StatusInternalServerError,
			Error:      fmt.Errorf("backend session timed out after %ds", b.cfg.ResponseTimeout),
			Type:       "server_error",
		}
	case context.Canceled:
		return &interfaces.ErrorMessage{
			StatusCode: StatusClientClosedRequest,
			Error:      fmt.Errorf("client closed request"),
			Type:       "server_error",
		}
	}
	return nil
}

func backendError(err error) *interfaces.ErrorMessage {
	return &interfaces.ErrorMessage{
		StatusCode: http.StatusInternalServerError,
		Error:      err,
		Type:       "server_error",
	}
}

func newCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}
