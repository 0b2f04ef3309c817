package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"listing-importer/internal/db"
)

// NewRouter creates and configures the Chi router. The API is read-only
// JSON over the canonical inventory; the web front end lives elsewhere.
func NewRouter(database *db.DB) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := NewHandlers(database)

	r.Route("/api", func(r chi.Router) {
		r.Get("/listings", h.ListRecords)
		r.Get("/listings/{publicID}", h.GetRecord)
		r.Get("/stats", h.Stats)
	})

	return r
}
