package gateway

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
)

// requestLogger emits one structured log line per request with the final
// status code and latency captured via httpsnoop.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"duration_ms", m.Duration.Milliseconds(),
				"bytes", m.Written,
			)
		})
	}
}
