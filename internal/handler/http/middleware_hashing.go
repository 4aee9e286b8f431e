package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/MKhiriev/go-life-tracker/internal/app"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/models"
)

// withIntegrityCheck verifies the keyed HMAC a client attaches to its
// request body in the [models.IntegrityHashHeader] header. The body is
// read in full, hashed with the shared key, compared against the
// declared value and then restored for the next handler.
//
// The check only runs when both sides participate: a server without a
// configured hash key and a request without the header pass through
// untouched, so unkeyed deployments keep working.
func (h *Handler) withIntegrityCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		declared := r.Header.Get(models.IntegrityHashHeader)
		if h.cfg.HashKey == "" || declared == "" || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		log := logger.FromRequest(r)

		// read bytes from body
		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Err(err).Str("func", "*Handler.withIntegrityCheck").Msg("failed to read request body")
			http.Error(w, app.MsgInternalServerError, http.StatusInternalServerError)
			return
		}
		// restore request body
		r.Body = io.NopCloser(bytes.NewReader(body))

		computed := utils.HashBytesKeyed(body, h.cfg.HashKey)
		if computed != declared {
			log.Error().Str("func", "*Handler.withIntegrityCheck").
				Str("hash from request", declared).
				Str("hashed body", computed).
				Msg("hashes are not equal")
			http.Error(w, app.MsgIntegrityCheckFailed, http.StatusBadRequest)
			return
		}

		log.Debug().Str("func", "*Handler.withIntegrityCheck").
			Str("hash from request", declared).
			Msg("hashes are equal")

		next.ServeHTTP(w, r)
	})
}
