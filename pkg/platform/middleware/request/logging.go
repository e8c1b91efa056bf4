package request

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mssola/useragent"

	"processguard/pkg/platform/middleware/metadata"
	"processguard/pkg/requestcontext"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// AccessLog logs one line per request. Server errors log at error level.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			ctx := r.Context()
			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			ua := useragent.New(metadata.GetUserAgent(ctx))
			browser, browserVersion := ua.Browser()
			logger.Log(ctx, level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", metadata.GetClientIP(ctx),
				"browser", browser,
				"browser_version", browserVersion,
				"bot", ua.Bot(),
			)
		})
	}
}
