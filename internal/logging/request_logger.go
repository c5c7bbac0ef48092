package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// RequestLogger defines the interface for logging HTTP requests and
// responses.
type RequestLogger interface {
	// LogRequest logs a complete non-streaming request/response cycle.
	LogRequest(url, method string, requestHeaders map[string][]string, body []byte, statusCode int, response []byte) error

	// LogStreamingRequest initiates logging for a streaming request and
	// returns a writer for chunks.
	LogStreamingRequest(url, method string, headers map[string][]string, body []byte) (StreamingLogWriter, error)

	// IsEnabled returns whether request logging is currently enabled.
	IsEnabled() bool
}

// StreamingLogWriter handles real-time logging of streaming response chunks.
type StreamingLogWriter interface {
	// WriteChunkAsync writes a response chunk asynchronously (non-blocking).
	WriteChunkAsync(chunk []byte)

	// Close finalizes the log file and cleans up resources.
	Close() error
}

// redactedHeaders lists request headers whose values carry credentials and
// must never reach a log file.
var redactedHeaders = map[string]struct{}{
	"Authorization":  {},
	"X-Goog-Api-Key": {},
	"X-Api-Key":      {},
}

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileRequestLogger implements RequestLogger using file-based storage. It
// can be toggled at runtime by the config watcher.
type FileRequestLogger struct {
	mu      sync.RWMutex
	enabled bool
	logsDir string
}

// NewFileRequestLogger creates a new file-based request logger.
func NewFileRequestLogger(enabled bool, logsDir string) *FileRequestLogger {
	return &FileRequestLogger{
		enabled: enabled,
		logsDir: logsDir,
	}
}

// IsEnabled returns whether request logging is currently enabled.
func (l *FileRequestLogger) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// SetEnabled toggles request logging at runtime.
func (l *FileRequestLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// LogRequest logs a complete non-streaming request/response cycle to a file.
func (l *FileRequestLogger) LogRequest(url, method string, requestHeaders map[string][]string, body []byte, statusCode int, response []byte) error {
	if !l.IsEnabled() {
		return nil
	}

	if err := l.ensureLogsDir(); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	var content strings.Builder
	writeRequestInfo(&content, url, method, requestHeaders, body)
	content.WriteString(fmt.Sprintf("=== RESPONSE (status %d) ===\n", statusCode))
	content.Write(response)
	content.WriteString("\n")

	filePath := filepath.Join(l.logsDir, l.generateFilename(url))
	if err := os.WriteFile(filePath, []byte(content.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}

// LogStreamingRequest initiates logging for a streaming request.
func (l *FileRequestLogger) LogStreamingRequest(url, method string, headers map[string][]string, body []byte) (StreamingLogWriter, error) {
	if !l.IsEnabled() {
		return &NoOpStreamingLogWriter{}, nil
	}

	if err := l.ensureLogsDir(); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	filePath := filepath.Join(l.logsDir, l.generateFilename(url))
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	var header strings.Builder
	writeRequestInfo(&header, url, method, headers, body)
	header.WriteString("=== STREAM ===\n")
	if _, err = file.WriteString(header.String()); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to write request info: %w", err)
	}

	writer := &FileStreamingLogWriter{
		file:      file,
		chunkChan: make(chan []byte, 100),
		doneChan:  make(chan struct{}),
	}
	go writer.asyncWriter()

	return writer, nil
}

func (l *FileRequestLogger) ensureLogsDir() error {
	if _, err := os.Stat(l.logsDir); os.IsNotExist(err) {
		return os.MkdirAll(l.logsDir, 0o755)
	}
	return nil
}

// generateFilename creates a sanitized filename from the URL path and the
// current timestamp.
func (l *FileRequestLogger) generateFilename(url string) string {
	path, _, _ := strings.Cut(url, "?")
	path = strings.Trim(path, "/")
	path = filenameSanitizer.ReplaceAllString(path, "_")
	if path == "" {
		path = "root"
	}
	return fmt.Sprintf("%s_%s.log", path, time.Now().Format("20060102_150405.000000"))
}

// writeRequestInfo renders the request line, headers, and body. Credential
// headers are redacted before anything touches the disk.
func writeRequestInfo(w *strings.Builder, url, method string, headers map[string][]string, body []byte) {
	w.WriteString(fmt.Sprintf("=== REQUEST %s %s ===\n", method, url))
	for key, values := range headers {
		if _, redacted := redactedHeaders[key]; redacted {
			w.WriteString(fmt.Sprintf("%s: [REDACTED]\n", key))
			continue
		}
		for _, value := range values {
			w.WriteString(fmt.Sprintf("%s: %s\n", key, value))
		}
	}
	w.WriteString("\n")
	w.Write(body)
	w.WriteString("\n")
}

// FileStreamingLogWriter appends streaming chunks to a log file from a
// dedicated goroutine so the response path never blocks on disk I/O.
type FileStreamingLogWriter struct {
	file      *os.File
	chunkChan chan []byte
	doneChan  chan struct{}
	closeOnce sync.Once
}

// WriteChunkAsync queues one chunk for writing. If the queue is full the
// chunk is dropped rather than blocking the response.
func (w *FileStreamingLogWriter) WriteChunkAsync(chunk []byte) {
	select {
	case w.chunkChan <- append([]byte(nil), chunk...):
	default:
	}
}

// Close flushes pending chunks and closes the file.
func (w *FileStreamingLogWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.chunkChan)
		<-w.doneChan
	})
	return w.file.Close()
}

func (w *FileStreamingLogWriter) asyncWriter() {
	defer close(w.doneChan)
	for chunk := range w.chunkChan {
		_, _ = w.file.Write(chunk)
		_, _ = w.file.WriteString("\n")
	}
}

// NoOpStreamingLogWriter is returned when logging is disabled.
type NoOpStreamingLogWriter struct{}

// WriteChunkAsync does nothing.
func (w *NoOpStreamingLogWriter) WriteChunkAsync([]byte) {}

// Close does nothing.
func (w *NoOpStreamingLogWriter) Close() error { return nil }
