// Package modelo347http exposes the declaration over HTTP.
package modelo347http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the declaration endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(20, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/modelo347/exercises", h.handleExercises)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/modelo347", h.handleDeclaration)
		gr.Post("/modelo347", h.handleDeclaration)
	})
}
