/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests

SECURITY NOTE:
  No authentication middleware. All endpoints are public; auth belongs
  to a gateway in front of this service.
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/borrowers", func(r chi.Router) {
			r.Post("/", h.RegisterBorrower)
			r.Get("/{id}", h.GetBorrower)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", h.ApplyLoan)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/payments", h.MakePayment)
			r.Get("/{id}/statement", h.GetStatement)
		})
	})

	return r
}
