// Package httpapi exposes the answering engine over HTTP. The query
// endpoint streams Server-Sent Events; everything else is plain JSON.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP router for the answering API.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.Health)
		r.Post("/query", handler.Query)
		r.Post("/ingest", handler.Ingest)
	})

	return r
}
