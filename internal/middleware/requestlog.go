package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/authz/server/internal/logging"
)

// RequestLogger logs one structured line per request through log.
func RequestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return chimw.RequestLogger(&logFormatter{log: log.With("module", "http")})
}

type logFormatter struct {
	log logging.Logger
}

func (f *logFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	return &logEntry{
		log: f.log.With(
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		),
		ctx: r.Context(),
	}
}

type logEntry struct {
	log logging.Logger
	ctx context.Context
}

func (e *logEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	args := []any{"status", status, "bytes", bytes, "duration_ms", elapsed.Milliseconds()}
	switch {
	case status >= http.StatusInternalServerError:
		e.log.Error(e.ctx, "request", args...)
	case status >= http.StatusBadRequest:
		e.log.Warn(e.ctx, "request", args...)
	default:
		e.log.Info(e.ctx, "request", args...)
	}
}

func (e *logEntry) Panic(v interface{}, stack []byte) {
	e.log.Error(e.ctx, "panic", "panic", v, "stack", string(stack))
}
