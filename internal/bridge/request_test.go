package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatRequestValid(t *testing.T) {
	raw := []byte(`{"model":"gemini-2.0-flash-exp","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}],"stream":true,"temperature":1.5,"max_tokens":64}`)

	req, errMsg := ParseChatRequest(raw)
	require.Nil(t, errMsg)
	assert.Equal(t, "gemini-2.0-flash-exp", req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, Message{Role: "user", Content: "hi"}, req.FinalMessage())
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 1.5, *req.Temperature)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, int64(64), *req.MaxTokens)
}

func TestParseChatRequestDefaults(t *testing.T) {
	req, errMsg := ParseChatRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.Nil(t, errMsg)
	assert.Equal(t, DefaultModel, req.Model)
	assert.False(t, req.Stream)
	assert.Nil(t, req.Temperature)
	assert.Nil(t, req.MaxTokens)
}

func TestParseChatRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not an object", `[1,2,3]`},
		{"missing messages", `{"model":"m"}`},
		{"empty messages", `{"messages":[]}`},
		{"bad role", `{"messages":[{"role":"tool","content":"x"}]}`},
		{"empty content", `{"messages":[{"role":"user","content":""}]}`},
		{"missing content", `{"messages":[{"role":"user"}]}`},
		{"temperature too high", `{"messages":[{"role":"user","content":"x"}],"temperature":2.5}`},
		{"temperature negative", `{"messages":[{"role":"user","content":"x"}],"temperature":-0.1}`},
		{"temperature wrong type", `{"messages":[{"role":"user","content":"x"}],"temperature":"hot"}`},
		{"max_tokens zero", `{"messages":[{"role":"user","content":"x"}],"max_tokens":0}`},
		{"max_tokens negative", `{"messages":[{"role":"user","content":"x"}],"max_tokens":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, errMsg := ParseChatRequest([]byte(tt.body))
			assert.Nil(t, req)
			require.NotNil(t, errMsg)
			assert.Equal(t, 400, errMsg.StatusCode)
			assert.Equal(t, "invalid_request_error", errMsg.Type)
		})
	}
}

func TestBackendRoleMapping(t *testing.T) {
	assert.Equal(t, "model", backendRole("assistant"))
	assert.Equal(t, "user", backendRole("user"))
	assert.Equal(t, "system", backendRole("system"))
}
