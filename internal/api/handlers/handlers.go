// Package handlers provides core API handler functionality for the Live
// Gateway server. It includes the shared error envelope and the base handler
// embedded by the endpoint-specific handlers.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/livegateway/livegateway/internal/bridge"
	"github.com/livegateway/livegateway/internal/config"
)

// ErrorResponse represents a standard error response format for the API.
// It contains a single ErrorDetail field.
type ErrorResponse struct {
	// Error contains detailed information about the error that occurred.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail provides specific information about an error that occurred.
// It includes a human-readable message and an error type.
type ErrorDetail struct {
	// Message is a human-readable message providing more details about the error.
	Message string `json:"message"`

	// Type is the category of error that occurred (e.g., "invalid_request_error").
	Type string `json:"type"`

	// Code is a short code identifying the error, if applicable.
	Code string `json:"code,omitempty"`
}

// BaseAPIHandler carries the pieces every endpoint handler needs: the
// immutable configuration and the session bridge.
type BaseAPIHandler struct {
	// Cfg holds the application configuration.
	Cfg *config.Config

	// Bridge adapts chat requests onto backend sessions.
	Bridge *bridge.Bridge
}

// NewBaseAPIHandlers creates a new base handler instance.
func NewBaseAPIHandlers(cfg *config.Config, b *bridge.Bridge) *BaseAPIHandler {
	return &BaseAPIHandler{
		Cfg:    cfg,
		Bridge: b,
	}
}

// GetContextWithCancel derives a cancellable context for one backend
// session from the request context, so a client disconnect propagates to
// the bridge and a write failure can cancel the backend explicitly.
func (h *BaseAPIHandler) GetContextWithCancel(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(c.Request.Context())
}
