package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router creates and configures the HTTP router for auth endpoints
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Basic middleware for all routes
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestIDHeaderMiddleware)
	r.Use(recoverMiddleware(h.logger))
	r.Use(logMiddleware(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/start", h.StartLogin)
	r.Post("/poll", h.Poll)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)

	return r
}
