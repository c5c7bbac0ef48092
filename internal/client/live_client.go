package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livegateway/livegateway/internal/config"
	"github.com/livegateway/livegateway/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	liveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	handshakeTimeout = 30 * time.Second

	// eventBuffer smooths over the handoff between the socket read loop and
	// the bridge consumer so a terminal event is never lost when the
	// consumer bails out early.
	eventBuffer = 16
)

// Dialer opens live sessions against the backend. One dialer is shared by
// all requests; it carries no per-session state.
type Dialer struct {
	cfg    *config.Config
	dialer *websocket.Dialer
}

// NewDialer creates a session dialer using the configured outbound proxy
// settings.
func NewDialer(cfg *config.Config) *Dialer {
	wsDialer := &websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	util.SetWebSocketProxy(cfg, wsDialer)

	return &Dialer{
		cfg:    cfg,
		dialer: wsDialer,
	}
}

// Open establishes one backend session: it dials the WebSocket endpoint,
// transmits the session setup derived from the request, and waits for the
// backend's setup acknowledgement. The returned session is live and must be
// closed by the caller on every path.
func (d *Dialer) Open(ctx context.Context, sc SessionConfig) (*LiveSession, error) {
	endpoint := liveEndpoint + "?key=" + url.QueryEscape(sc.APIKey)

	conn, resp, err := d.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("backend dial failed: %v (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("backend dial failed: %v", err)
	}

	log.Debugf("live session opened for model %s with key %s", sc.Model, util.HideAPIKey(sc.APIKey))

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	setup := buildSetup(sc)
	if err = conn.WriteMessage(websocket.TextMessage, setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send session setup: %v", err)
	}

	// The first server frame must acknowledge the setup before any content
	// can be transmitted.
	_, ack, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read setup acknowledgement: %v", err)
	}
	if !gjson.GetBytes(ack, "setupComplete").Exists() {
		_ = conn.Close()
		if msg := gjson.GetBytes(ack, "error.message"); msg.Exists() {
			return nil, fmt.Errorf("backend rejected session setup: %s", msg.String())
		}
		return nil, fmt.Errorf("unexpected frame before setup acknowledgement")
	}

	session := &LiveSession{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go session.readLoop()

	return session, nil
}

// buildSetup renders the session setup frame. The response modality is fixed
// to text; generation parameters appear only when the request carried them.
func buildSetup(sc SessionConfig) []byte {
	setup := `{"setup":{"model":"","generationConfig":{"responseModalities":["TEXT"]}}}`
	setup, _ = sjson.Set(setup, "setup.model", "models/"+sc.Model)
	if sc.Temperature != nil {
		setup, _ = sjson.Set(setup, "setup.generationConfig.temperature", *sc.Temperature)
	}
	if sc.MaxOutputTokens != nil {
		setup, _ = sjson.Set(setup, "setup.generationConfig.maxOutputTokens", *sc.MaxOutputTokens)
	}
	return []byte(setup)
}

// LiveSession is one established backend session. It is owned by exactly one
// request handler and is never reused.
type LiveSession struct {
	conn      *websocket.Conn
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events returns the ordered backend event stream. The channel is closed
// after the final EventClosed.
func (s *LiveSession) Events() <-chan Event {
	return s.events
}

// SendTurn transmits one end-of-turn message. The backend treats the turn as
// complete and begins generating immediately.
func (s *LiveSession) SendTurn(role, text string) error {
	frame := `{"clientContent":{"turns":[{"role":"","parts":[{"text":""}]}],"turnComplete":true}}`
	frame, _ = sjson.Set(frame, "clientContent.turns.0.role", role)
	frame, _ = sjson.Set(frame, "clientContent.turns.0.parts.0.text", text)

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("failed to send turn: %v", err)
	}
	return nil
}

// Close tears down the session. It is safe to call from any terminal path
// and more than once.
func (s *LiveSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
}

// readLoop translates raw socket frames into ordered events. It exits when
// the connection closes or the session is told to stop consuming.
func (s *LiveSession) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			ev := Event{Type: EventClosed}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ev.Err = err
			}
			s.emit(ev)
			return
		}

		root := gjson.ParseBytes(data)

		if errFrame := root.Get("error"); errFrame.Exists() {
			message := errFrame.Get("message").String()
			if message == "" {
				message = errFrame.Raw
			}
			if !s.emit(Event{Type: EventError, Err: fmt.Errorf("%s", message)}) {
				return
			}
			continue
		}

		serverContent := root.Get("serverContent")
		if !serverContent.Exists() {
			continue
		}

		delivered := true
		serverContent.Get("modelTurn.parts").ForEach(func(_, part gjson.Result) bool {
			if text := part.Get("text"); text.Exists() && text.String() != "" {
				delivered = s.emit(Event{Type: EventText, Text: text.String()})
			}
			return delivered
		})
		if !delivered {
			return
		}

		if serverContent.Get("turnComplete").Bool() {
			if !s.emit(Event{Type: EventTurnComplete}) {
				return
			}
		}
	}
}

// emit delivers one event unless the session has been closed. It reports
// whether delivery happened.
func (s *LiveSession) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
