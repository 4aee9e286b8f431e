package http

import (
	"net/http"
	"time"

	"github.com/MKhiriev/go-life-tracker/internal/logger"
)

// withLogging records one structured log line per handled request:
// method, URI, response status, response size and handling duration.
func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		log := logger.FromRequest(r)
		log.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", rw.Status()).
			Int("size", rw.Size()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
