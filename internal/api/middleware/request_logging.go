package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/livegateway/livegateway/internal/logging"
)

// RequestLoggingMiddleware creates a Gin middleware that logs HTTP requests
// and responses through the provided RequestLogger. When logging is disabled
// the middleware has minimal overhead. Credential headers are redacted by
// the logger before anything is written.
func RequestLoggingMiddleware(logger logging.RequestLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !logger.IsEnabled() {
			c.Next()
			return
		}

		requestInfo, err := captureRequestInfo(c)
		if err != nil {
			c.Next()
			return
		}

		wrapper := NewResponseWriterWrapper(c.Writer, logger, requestInfo)
		c.Writer = wrapper

		c.Next()

		_ = wrapper.Finalize()
	}
}

// captureRequestInfo extracts the URL, method, headers, and body from the
// incoming request. The body is read and then restored so subsequent
// handlers can process it.
func captureRequestInfo(c *gin.Context) (*RequestInfo, error) {
	url := c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		url += "?" + c.Request.URL.RawQuery
	}

	headers := make(map[string][]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		headers[key] = values
	}

	var body []byte
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		body = bodyBytes
	}

	return &RequestInfo{
		URL:     url,
		Method:  c.Request.Method,
		Headers: headers,
		Body:    body,
	}, nil
}
