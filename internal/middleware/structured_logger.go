package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingConfig tunes the request logger.
type LoggingConfig struct {
	// SlowRequestThreshold marks requests slower than this as warnings.
	SlowRequestThreshold time.Duration

	// SkipPaths are logged at debug level only (health probes, metrics).
	SkipPaths []string
}

// DefaultLoggingConfig returns default logging configuration
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		SlowRequestThreshold: 2 * time.Second,
		SkipPaths:            []string{"/health", "/health/live"},
	}
}

// StructuredResponseWriter captures the status code and response size.
type StructuredResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
	written    bool
}

// WriteHeader captures the status code
func (w *StructuredResponseWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.statusCode = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

// Write captures the response size
func (w *StructuredResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// StructuredLogger logs each request with method, path, status and
// duration, using the request-scoped logger installed by RequestID.
func StructuredLogger(config *LoggingConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &StructuredResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			logger := GetRequestLogger(r.Context())

			fields := []zap.Field{
				zap.Int("status", wrapped.statusCode),
				zap.Int("response_size", wrapped.size),
				zap.Duration("duration", duration),
			}

			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				logger.Error("Request failed", fields...)
			case duration > config.SlowRequestThreshold:
				logger.Warn("Slow request", fields...)
			case skip[r.URL.Path]:
				logger.Debug("Request completed", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
		})
	}
}
