package bridge

import (
	"fmt"
	"net/http"

	"github.com/livegateway/livegateway/internal/interfaces"
	"github.com/tidwall/gjson"
)

// DefaultModel is used when the request omits the model field.
const DefaultModel = "gemini-2.0-flash-exp"

// Message is one conversation entry, immutable once received.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is the validated form of one inbound chat-completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Stream      bool
	Temperature *float64
	MaxTokens   *int64
}

var validRoles = map[string]struct{}{
	"user":      {},
	"assistant": {},
	"system":    {},
}

// ParseChatRequest validates the raw request body and produces a
// ChatRequest. All schema and range checks happen here, before any backend
// session opens; a validation failure therefore costs zero backend
// resources.
func ParseChatRequest(rawJSON []byte) (*ChatRequest, *interfaces.ErrorMessage) {
	root := gjson.ParseBytes(rawJSON)
	if !root.IsObject() {
		return nil, validationError("request body must be a JSON object")
	}

	req := &ChatRequest{
		Model:  DefaultModel,
		Stream: root.Get("stream").Bool(),
	}
	if model := root.Get("model"); model.Exists() && model.String() != "" {
		req.Model = model.String()
	}

	messages := root.Get("messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		return nil, validationError("messages must be a non-empty array")
	}

	var bad *interfaces.ErrorMessage
	messages.ForEach(func(index, message gjson.Result) bool {
		role := message.Get("role").String()
		if _, ok := validRoles[role]; !ok {
			bad = validationError(fmt.Sprintf("messages[%d].role must be one of user, assistant, system", int(index.Int())))
			return false
		}
		content := message.Get("content").String()
		if content == "" {
			bad = validationError(fmt.Sprintf("messages[%d].content must be a non-empty string", int(index.Int())))
			return false
		}
		req.Messages = append(req.Messages, Message{Role: role, Content: content})
		return true
	})
	if bad != nil {
		return nil, bad
	}

	if temperature := root.Get("temperature"); temperature.Exists() {
		value := temperature.Float()
		if temperature.Type != gjson.Number || value < 0 || value > 2 {
			return nil, validationError("temperature must be a number between 0 and 2")
		}
		req.Temperature = &value
	}

	if maxTokens := root.Get("max_tokens"); maxTokens.Exists() {
		value := maxTokens.Int()
		if maxTokens.Type != gjson.Number || value <= 0 {
			return nil, validationError("max_tokens must be a positive integer")
		}
		req.MaxTokens = &value
	}

	return req, nil
}

// FinalMessage returns the last message of the conversation, the only one
// transmitted to the backend.
func (r *ChatRequest) FinalMessage() Message {
	return r.Messages[len(r.Messages)-1]
}

func validationError(message string) *interfaces.ErrorMessage {
	return &interfaces.ErrorMessage{
		StatusCode: http.StatusBadRequest,
		Error:      fmt.Errorf("%s", message),
		Type:       "invalid_request_error",
	}
}

// backendRole maps an OpenAI role onto the backend's turn role. The backend
// names its model-authored role "model"; other roles pass through unchanged.
func backendRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return role
}
