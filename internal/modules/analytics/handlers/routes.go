package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/overview", h.HandleGetOverview)
		r.Post("/reload", h.HandleReload)

		r.Get("/entities", h.HandleListEntities)
		r.Route("/entities/{id}", func(r chi.Router) {
			r.Get("/", withID(h.HandleGetEntity))
			r.Get("/peer", withID(h.HandleGetPeer))
			r.Get("/target", withID(h.HandleGetTarget))
			r.Get("/forecast", withID(h.HandleGetForecast))
			r.Get("/seasonal", withID(h.HandleGetSeasonal))
		})
	})
}

func withID(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, chi.URLParam(r, "id"))
	}
}
