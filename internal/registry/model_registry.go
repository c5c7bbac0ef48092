// Package registry lists the backend models the gateway exposes through the
// OpenAI-compatible models endpoint. The set is static: the gateway fronts
// exactly one backend and does not track per-client availability.
package registry

// ModelInfo represents information about an available model in
// OpenAI-compatible format.
type ModelInfo struct {
	// ID is the unique identifier for the model.
	ID string `json:"id"`
	// Object type for the model (always "model").
	Object string `json:"object"`
	// Created timestamp when the model was published.
	Created int64 `json:"created"`
	// OwnedBy indicates the organization that owns the model.
	OwnedBy string `json:"owned_by"`
}

var liveModels = []ModelInfo{
	{ID: "gemini-2.0-flash-exp", Object: "model", Created: 1733875200, OwnedBy: "google"},
	{ID: "gemini-2.0-flash-live-001", Object: "model", Created: 1743465600, OwnedBy: "google"},
	{ID: "gemini-live-2.5-flash-preview", Object: "model", Created: 1749081600, OwnedBy: "google"},
}

// GetAvailableModels returns the models served by the gateway.
func GetAvailableModels() []ModelInfo {
	models := make([]ModelInfo, len(liveModels))
	copy(models, liveModels)
	return models
}
