package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-life-tracker/internal/app"
	"github.com/MKhiriev/go-life-tracker/internal/store"
)

var errorStatusMap = map[error]int{
	store.ErrBlobNotFound:    http.StatusNotFound,
	store.ErrBlobPathInvalid: http.StatusBadRequest,
}

var errorMessageMap = map[error]string{
	store.ErrBlobNotFound:    app.MsgArtifactNotFound,
	store.ErrBlobPathInvalid: app.MsgInvalidArtifactPath,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// messageFromError picks the response body for a failed artifact
// operation: a well-known message for classified errors, the handler's
// fallback otherwise. Raw error text never reaches the client.
func messageFromError(err error, fallback string) string {
	for target, msg := range errorMessageMap {
		if errors.Is(err, target) {
			return msg
		}
	}
	return fallback
}
