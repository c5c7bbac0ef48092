package middleware

import (
	"bytes"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/livegateway/livegateway/internal/logging"
	log "github.com/sirupsen/logrus"
)

// RequestInfo holds the captured request data used when the response is
// eventually logged.
type RequestInfo struct {
	URL     string
	Method  string
	Headers map[string][]string
	Body    []byte
}

// ResponseWriterWrapper wraps gin.ResponseWriter to capture response data for
// logging. Streaming responses (SSE) are forwarded to an asynchronous chunk
// writer as they are produced; buffered responses are logged once on
// Finalize.
type ResponseWriterWrapper struct {
	gin.ResponseWriter
	logger      logging.RequestLogger
	requestInfo *RequestInfo

	body         bytes.Buffer
	isStreaming  bool
	streamWriter logging.StreamingLogWriter
	finalized    bool
}

// NewResponseWriterWrapper creates a new response writer wrapper.
func NewResponseWriterWrapper(w gin.ResponseWriter, logger logging.RequestLogger, requestInfo *RequestInfo) *ResponseWriterWrapper {
	return &ResponseWriterWrapper{
		ResponseWriter: w,
		logger:         logger,
		requestInfo:    requestInfo,
	}
}

// Write captures response data while passing it through to the client.
func (w *ResponseWriterWrapper) Write(data []byte) (int, error) {
	w.detectStreaming()

	if w.isStreaming {
		if w.streamWriter != nil {
			w.streamWriter.WriteChunkAsync(append([]byte(nil), data...))
		}
	} else {
		w.body.Write(data)
	}

	return w.ResponseWriter.Write(data)
}

// WriteString captures string response data while passing it through.
func (w *ResponseWriterWrapper) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// detectStreaming checks the response content type on first write and, for
// SSE responses, opens the streaming log writer.
func (w *ResponseWriterWrapper) detectStreaming() {
	if w.isStreaming || w.streamWriter != nil || w.body.Len() > 0 {
		return
	}

	contentType := w.Header().Get("Content-Type")
	if !strings.Contains(contentType, "text/event-stream") {
		return
	}

	w.isStreaming = true
	writer, err := w.logger.LogStreamingRequest(w.requestInfo.URL, w.requestInfo.Method, w.requestInfo.Headers, w.requestInfo.Body)
	if err != nil {
		log.Warnf("failed to start streaming request log: %v", err)
		return
	}
	w.streamWriter = writer
}

// Finalize completes the logging once the handler chain has finished.
func (w *ResponseWriterWrapper) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true

	if w.isStreaming {
		if w.streamWriter != nil {
			return w.streamWriter.Close()
		}
		return nil
	}

	return w.logger.LogRequest(
		w.requestInfo.URL,
		w.requestInfo.Method,
		w.requestInfo.Headers,
		w.requestInfo.Body,
		w.Status(),
		w.body.Bytes(),
	)
}
