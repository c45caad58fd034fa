// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// routeUnmatched labels requests that matched no route.
const routeUnmatched = "unmatched"

// Routes returns the HTTP handler for the auth endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.observe)
	r.Use(middleware.Recoverer)
	if len(h.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.With(h.limit).Post("/auth/users", h.register)
	r.Get("/auth/users", h.checkLogin)
	r.With(h.limit).Post("/auth/users/signin", h.signin)
	r.Get("/auth/users/signout", h.signout)
	r.Post("/auth/users/duplicateEmail", h.duplicateEmail)
	r.Post("/auth/users/duplicatePublicId", h.duplicatePublicID)
	return r
}

// observe records each request under its route pattern, which chi only
// knows once routing has finished.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := routeUnmatched
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, status)
	})
}
