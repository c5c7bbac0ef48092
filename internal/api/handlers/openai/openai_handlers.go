// Package openai provides HTTP handlers for the OpenAI-compatible API
// endpoints. It implements model listing and chat completion functionality,
// supporting both streaming and non-streaming responses, and translates each
// request into one backend live session through the bridge.
package openai

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livegateway/livegateway/internal/api/handlers"
	"github.com/livegateway/livegateway/internal/bridge"
	"github.com/livegateway/livegateway/internal/registry"
	log "github.com/sirupsen/logrus"
)

// OpenAIAPIHandler contains the handlers for OpenAI API endpoints.
type OpenAIAPIHandler struct {
	*handlers.BaseAPIHandler
}

// NewOpenAIAPIHandler creates a new OpenAI API handlers instance.
func NewOpenAIAPIHandler(apiHandlers *handlers.BaseAPIHandler) *OpenAIAPIHandler {
	return &OpenAIAPIHandler{
		BaseAPIHandler: apiHandlers,
	}
}

// OpenAIModels handles the /v1/models endpoint. It returns the models served
// by the gateway in OpenAI-compatible format.
func (h *OpenAIAPIHandler) OpenAIModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   registry.GetAvailableModels(),
	})
}

// ChatCompletions handles the /v1/chat/completions endpoint. It validates
// the request, then dispatches to the streaming or non-streaming path. All
// validation resolves before any backend session opens.
func (h *OpenAIAPIHandler) ChatCompletions(c *gin.Context) {
	rawJSON, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: fmt.Sprintf("Invalid request: %v", err),
				Type:    "invalid_request_error",
			},
		})
		return
	}

	req, errMsg := bridge.ParseChatRequest(rawJSON)
	if errMsg != nil {
		log.Warnf("request validation failed for %s: %v", c.ClientIP(), errMsg.Error)
		c.JSON(errMsg.StatusCode, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: errMsg.Error.Error(),
				Type:    errMsg.Type,
			},
		})
		return
	}

	apiKey := c.GetString("apiKey")

	if req.Stream {
		h.handleStreamingResponse(c, req, apiKey)
	} else {
		h.handleNonStreamingResponse(c, req, apiKey)
	}
}

// handleNonStreamingResponse runs the backend session to completion and
// responds with a single JSON completion object.
func (h *OpenAIAPIHandler) handleNonStreamingResponse(c *gin.Context, req *bridge.ChatRequest, apiKey string) {
	ctx, cancel := h.GetContextWithCancel(c)
	defer cancel()

	resp, errMsg := h.Bridge.Complete(ctx, req, apiKey)
	if errMsg != nil {
		if errMsg.StatusCode == bridge.StatusClientClosedRequest {
			log.Debugf("client %s disconnected before completion", c.ClientIP())
			return
		}
		log.Warnf("backend session failed for %s: %v", c.ClientIP(), errMsg.Error)
		c.JSON(errMsg.StatusCode, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: errMsg.Error.Error(),
				Type:    errMsg.Type,
			},
		})
		return
	}

	c.Header("Content-Type", "application/json")
	_, _ = c.Writer.Write(resp)
}

// handleStreamingResponse forwards backend chunks to the client in real time
// using Server-Sent Events. A failed downstream write cancels the backend
// session immediately; a backend failure after headers are sent is reported
// as an in-band error frame since the status can no longer change.
func (h *OpenAIAPIHandler) handleStreamingResponse(c *gin.Context, req *bridge.ChatRequest, apiKey string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: "Streaming not supported",
				Type:    "server_error",
			},
		})
		return
	}

	ctx, cancel := h.GetContextWithCancel(c)
	defer cancel()

	dataChan, errChan := h.Bridge.Stream(ctx, req, apiKey)

	wroteChunk := false
	for {
		select {
		case <-c.Request.Context().Done():
			log.Debugf("client %s disconnected mid-stream", c.ClientIP())
			cancel()
			return

		case chunk, okStream := <-dataChan:
			if !okStream {
				// The data channel closing can race a buffered error;
				// check before declaring success.
				select {
				case errMsg, okError := <-errChan:
					if okError && errMsg != nil {
						h.writeStreamError(c, flusher, errMsg.Error.Error(), errMsg.Type, wroteChunk)
						return
					}
				default:
				}
				_, _ = fmt.Fprintf(c.Writer, "data: [DONE]\n\n")
				flusher.Flush()
				return
			}

			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", chunk); err != nil {
				log.Debugf("downstream write failed for %s, closing backend session: %v", c.ClientIP(), err)
				cancel()
				return
			}
			flusher.Flush()
			wroteChunk = true

		case errMsg, okError := <-errChan:
			if okError && errMsg != nil {
				if errMsg.StatusCode == bridge.StatusClientClosedRequest {
					log.Debugf("client %s disconnected before completion", c.ClientIP())
					return
				}
				log.Warnf("backend session failed for %s: %v", c.ClientIP(), errMsg.Error)
				h.writeStreamError(c, flusher, errMsg.Error.Error(), errMsg.Type, wroteChunk)
				return
			}
		}
	}
}

// writeStreamError reports a failure on a streaming response. Before any
// chunk was written the status code can still express the failure; after
// that only a best-effort in-band error frame is possible.
func (h *OpenAIAPIHandler) writeStreamError(c *gin.Context, flusher http.Flusher, message, errType string, wroteChunk bool) {
	if !wroteChunk {
		c.Status(http.StatusInternalServerError)
	}
	frame, _ := json.Marshal(handlers.ErrorResponse{
		Error: handlers.ErrorDetail{
			Message: message,
			Type:    errType,
		},
	})
	_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", frame)
	flusher.Flush()
}
