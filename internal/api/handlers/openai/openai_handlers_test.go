package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/livegateway/livegateway/internal/api/handlers"
	"github.com/livegateway/livegateway/internal/bridge"
	"github.com/livegateway/livegateway/internal/client"
	"github.com/livegateway/livegateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeSession struct {
	events chan client.Event
	sent   []string
}

func (s *fakeSession) SendTurn(role, text string) error {
	s.sent = append(s.sent, role+":"+text)
	return nil
}

func (s *fakeSession) Events() <-chan client.Event { return s.events }

func (s *fakeSession) Close() {}

type fakeOpener struct {
	opened  int
	session *fakeSession
}

func (o *fakeOpener) Open(ctx context.Context, sc client.SessionConfig) (bridge.Session, error) {
	o.opened++
	return o.session, nil
}

// scriptedSession returns a session whose event channel is pre-loaded with
// the given events.
func scriptedSession(events ...client.Event) *fakeSession {
	s := &fakeSession{events: make(chan client.Event, len(events))}
	for _, ev := range events {
		s.events <- ev
	}
	return s
}

func newHandlerTestRouter(opener bridge.SessionOpener) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{ResponseTimeout: 5}
	handler := NewOpenAIAPIHandler(handlers.NewBaseAPIHandlers(cfg, bridge.New(cfg, opener)))

	engine := gin.New()
	engine.GET("/v1/models", handler.OpenAIModels)
	engine.POST("/v1/chat/completions", func(c *gin.Context) {
		c.Set("apiKey", "test-key")
		handler.ChatCompletions(c)
	})
	return engine
}

func TestOpenAIModelsListsGatewayModels(t *testing.T) {
	engine := newHandlerTestRouter(&fakeOpener{})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.Bytes()
	assert.Equal(t, "list", gjson.GetBytes(body, "object").String())
	assert.Greater(t, len(gjson.GetBytes(body, "data").Array()), 0)
	assert.Equal(t, "model", gjson.GetBytes(body, "data.0.object").String())
}

func TestChatCompletionsNonStreaming(t *testing.T) {
	opener := &fakeOpener{session: scriptedSession(
		client.Event{Type: client.EventText, Text: "Hel"},
		client.Event{Type: client.EventText, Text: "lo"},
		client.Event{Type: client.EventTurnComplete},
	)}
	engine := newHandlerTestRouter(opener)

	body := `{"model":"gemini-2.0-flash-exp","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := rec.Body.Bytes()
	assert.Equal(t, "chat.completion", gjson.GetBytes(resp, "object").String())
	assert.Equal(t, "Hello", gjson.GetBytes(resp, "choices.0.message.content").String())
	assert.Equal(t, "stop", gjson.GetBytes(resp, "choices.0.finish_reason").String())
	assert.Equal(t, int64(-1), gjson.GetBytes(resp, "usage.total_tokens").Int())
	assert.Equal(t, 1, opener.opened)
	assert.Equal(t, []string{"user:hi"}, opener.session.sent)
}

func TestChatCompletionsRejectsInvalidRequestBeforeOpeningSession(t *testing.T) {
	opener := &fakeOpener{}
	engine := newHandlerTestRouter(opener)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"m","messages":[]}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", gjson.GetBytes(rec.Body.Bytes(), "error.type").String())
	assert.Equal(t, 0, opener.opened, "validation failures must not open backend sessions")
}

func TestChatCompletionsStreaming(t *testing.T) {
	opener := &fakeOpener{session: scriptedSession(
		client.Event{Type: client.EventText, Text: "alpha"},
		client.Event{Type: client.EventText, Text: "beta"},
		client.Event{Type: client.EventTurnComplete},
	)}
	engine := newHandlerTestRouter(opener)

	body := `{"model":"gemini-2.0-flash-exp","messages":[{"role":"user","content":"hi"}],"stream":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	var deltas []string
	var sawStop bool
	frames := strings.Split(rec.Body.String(), "\n\n")
	for _, frame := range frames {
		payload, ok := strings.CutPrefix(frame, "data: ")
		if !ok || payload == "[DONE]" {
			continue
		}
		assert.Equal(t, "chat.completion.chunk", gjson.Get(payload, "object").String())
		if delta := gjson.Get(payload, "choices.0.delta.content"); delta.Exists() && delta.String() != "" {
			deltas = append(deltas, delta.String())
		}
		if gjson.Get(payload, "choices.0.finish_reason").String() == "stop" {
			sawStop = true
		}
	}

	assert.Equal(t, []string{"alpha", "beta"}, deltas)
	assert.True(t, sawStop, "stream must end with a finish_reason chunk")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(rec.Body.String()), "data: [DONE]"))
}

func TestChatCompletionsBackendErrorNonStreaming(t *testing.T) {
	opener := &fakeOpener{session: scriptedSession(
		client.Event{Type: client.EventError, Err: assert.AnError},
	)}
	engine := newHandlerTestRouter(opener)

	body := `{"model":"gemini-2.0-flash-exp","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", gjson.GetBytes(rec.Body.Bytes(), "error.type").String())
}

func TestChatCompletionsBackendErrorStreaming(t *testing.T) {
	opener := &fakeOpener{session: scriptedSession(
		client.Event{Type: client.EventError, Err: assert.AnError},
	)}
	engine := newHandlerTestRouter(opener)

	body := `{"model":"gemini-2.0-flash-exp","messages":[{"role":"user","content":"hi"}],"stream":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"server_error"`)
	assert.NotContains(t, rec.Body.String(), "data: [DONE]")
}
