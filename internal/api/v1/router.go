package v1

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter builds the v1 API routes. Every route is a dry run: nothing is
// written to disk and no daemon is touched.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Post("/instances", h.ListInstances)
		r.Post("/validate", h.Validate)
		r.Post("/render", h.Render)
		r.Get("/ciphers", h.GetCiphers)
		r.Get("/logs", h.GetLogs)
	})
	return r
}
