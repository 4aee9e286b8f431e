package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(withGZip)

	// routes without authorization
	router.Get("/api/version", h.getServerVersion)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	// artifact endpoints require a device token
	router.Route("/api/blobs", func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.withIntegrityCheck)

		r.Get("/", h.listBlobs)
		r.Get("/*", h.downloadBlob)
		r.Put("/*", h.uploadBlob)
		r.Delete("/*", h.deleteBlob)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
