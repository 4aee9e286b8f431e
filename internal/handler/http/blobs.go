package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/MKhiriev/go-life-tracker/internal/app"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/metrics"
	"github.com/MKhiriev/go-life-tracker/internal/store"
	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/models"
	"github.com/go-chi/chi/v5"
)

// listBlobs responds with the metadata descriptors of every stored
// artifact. Clients use the listing to decide what to pull without
// downloading any content.
func (h *Handler) listBlobs(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	items, err := h.blobs.List(r.Context())
	metrics.ReportArtifactRequest("list", err)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listBlobs").Msg("error listing artifacts")
		http.Error(w, messageFromError(err, app.MsgErrorListingArtifacts), statusFromError(err))
		return
	}

	utils.WriteJSON(w, models.MetadataListResponse{Items: items, Length: len(items)}, http.StatusOK)
}

// downloadBlob streams one artifact's raw bytes back to the client.
// When a hash key is configured the response carries a keyed hash of
// the body so the client can verify it was not corrupted in transit.
func (h *Handler) downloadBlob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	path := chi.URLParam(r, "*")

	blob, err := h.blobs.Load(r.Context(), path)
	metrics.ReportArtifactRequest("download", err)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			log.Debug().Str("func", "*Handler.downloadBlob").Str("path", path).Msg("artifact not found")
		} else {
			log.Err(err).Str("func", "*Handler.downloadBlob").Str("path", path).Msg("error loading artifact")
		}
		http.Error(w, messageFromError(err, app.MsgErrorLoadingArtifact), statusFromError(err))
		return
	}

	if h.cfg.HashKey != "" {
		w.Header().Set(models.IntegrityHashHeader, utils.HashBytesKeyed(blob, h.cfg.HashKey))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(blob)
}

// uploadBlob stores the request body under the artifact path and
// responds with the recorded metadata descriptor. The entity hash
// header, when present, is persisted alongside the blob and echoed in
// subsequent listings.
func (h *Handler) uploadBlob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	path := chi.URLParam(r, "*")

	blob, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.ReportArtifactRequest("upload", err)
		log.Err(err).Str("func", "*Handler.uploadBlob").Str("path", path).Msg("error reading request body")
		http.Error(w, app.MsgErrorStoringArtifact, http.StatusBadRequest)
		return
	}

	meta, err := h.blobs.Save(r.Context(), path, blob, r.Header.Get(models.EntityHashHeader))
	metrics.ReportArtifactRequest("upload", err)
	if err != nil {
		log.Err(err).Str("func", "*Handler.uploadBlob").Str("path", path).Msg("error storing artifact")
		http.Error(w, messageFromError(err, app.MsgErrorStoringArtifact), statusFromError(err))
		return
	}

	log.Debug().Str("func", "*Handler.uploadBlob").Str("path", path).Int("size", len(blob)).Msg("artifact stored")
	utils.WriteJSON(w, meta, http.StatusOK)
}

// deleteBlob removes one artifact together with its metadata record.
// Deleting an artifact that does not exist responds with 404; the sync
// client treats that as an already-satisfied deletion.
func (h *Handler) deleteBlob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	path := chi.URLParam(r, "*")

	err := h.blobs.Delete(r.Context(), path)
	metrics.ReportArtifactRequest("delete", err)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			log.Debug().Str("func", "*Handler.deleteBlob").Str("path", path).Msg("artifact already absent")
		} else {
			log.Err(err).Str("func", "*Handler.deleteBlob").Str("path", path).Msg("error deleting artifact")
		}
		http.Error(w, messageFromError(err, app.MsgErrorDeletingArtifact), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
