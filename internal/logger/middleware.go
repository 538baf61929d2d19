package logger

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware logs one line per request and makes sure every request carries
// an X-Request-ID, generating one when the client did not send it.
func (l *Logger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := RequestID(r)
		r.Header.Set(RequestIDHeader, reqID)
		w.Header().Set(RequestIDHeader, reqID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		entry := l.WithRequest(r).WithFields(logrus.Fields{
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case sw.status >= 500:
			entry.Error("request failed")
		case sw.status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	})
}
