package bridge

import (
	"github.com/tidwall/sjson"
)

// sentinelTokens is reported for all usage counters. The backend exposes no
// usable counts at response time, so the gateway reports a recognizable
// sentinel rather than fabricating numbers. Callers must not bill on these.
const sentinelTokens = -1

// completionResponse renders the single JSON object returned for a
// non-streaming request.
func completionResponse(id string, created int64, model, content string) []byte {
	out := `{"id":"","object":"chat.completion","created":0,"model":"","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}],"usage":{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0}}`
	out, _ = sjson.Set(out, "id", id)
	out, _ = sjson.Set(out, "created", created)
	out, _ = sjson.Set(out, "model", model)
	out, _ = sjson.Set(out, "choices.0.message.content", content)
	out, _ = sjson.Set(out, "usage.prompt_tokens", sentinelTokens)
	out, _ = sjson.Set(out, "usage.completion_tokens", sentinelTokens)
	out, _ = sjson.Set(out, "usage.total_tokens", sentinelTokens)
	return []byte(out)
}

// deltaChunk renders one streaming chunk carrying exactly one text delta.
func deltaChunk(id string, created int64, model, delta string) []byte {
	out := `{"id":"","object":"chat.completion.chunk","created":0,"model":"","choices":[{"index":0,"delta":{"content":""},"finish_reason":null}]}`
	out, _ = sjson.Set(out, "id", id)
	out, _ = sjson.Set(out, "created", created)
	out, _ = sjson.Set(out, "model", model)
	out, _ = sjson.Set(out, "choices.0.delta.content", delta)
	return []byte(out)
}

// stopChunk renders the terminal streaming chunk: an empty delta with finish
// reason "stop" and sentinel usage.
func stopChunk(id string, created int64, model string) []byte {
	out := `{"id":"","object":"chat.completion.chunk","created":0,"model":"","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0}}`
	out, _ = sjson.Set(out, "id", id)
	out, _ = sjson.Set(out, "created", created)
	out, _ = sjson.Set(out, "model", model)
	out, _ = sjson.Set(out, "usage.prompt_tokens", sentinelTokens)
	out, _ = sjson.Set(out, "usage.completion_tokens", sentinelTokens)
	out, _ = sjson.Set(out, "usage.total_tokens", sentinelTokens)
	return []byte(out)
}
