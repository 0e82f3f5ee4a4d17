package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// Server identity header
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Server-Identity", "recipient-engine-v1.0")
			w.Header().Set("X-Server-Binary", "cmd/server")
			next.ServeHTTP(w, req)
		})
	})

	// CORS - explicit origins so auth cookies can be allowed later
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// One-off recipient validation
		r.Route("/phone", func(r chi.Router) {
			r.Post("/validate", h.ValidatePhone)
		})
		r.Route("/email", func(r chi.Router) {
			r.Post("/validate", h.ValidateEmail)
		})

		// Sheet upload review flow
		r.Route("/sheets", func(r chi.Router) {
			r.Post("/preview", h.PreviewSheet)
			r.Get("/{sessionID}", h.GetSheetSummary)
			r.Get("/{sessionID}/status", h.GetSheetStatus)
		})
	})

	return r
}
