package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mailpulse/mailpulse/internal/tracking"
)

// SetupRoutes configures all routes. The pixel endpoint and the public
// issuance endpoint are unauthenticated by design; the dashboard API sits
// behind a static bearer token unless dev mode is on.
func SetupRoutes(h *Handlers, pixel *tracking.Handler, apiToken string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	// Pixel fetches come from third-party mail clients; never gate them.
	r.Get("/p/{token}", pixel.HandlePixel)

	devMode := os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development"

	r.Route("/api", func(r chi.Router) {
		// Extension endpoint: no auth, rate-limited inside the handler
		r.Post("/track/public", h.CreatePublicTracking)

		r.Group(func(r chi.Router) {
			if apiToken != "" && !devMode {
				r.Use(bearerAuth(apiToken))
			}
			r.Post("/track/send", h.CreateTracking)
			r.Get("/emails", h.ListEmails)
			r.Get("/emails/export", h.ExportCSV)
			r.Get("/emails/{id}/opens", h.GetOpens)
			r.Post("/slack/notify", h.SlackNotify)
		})
	})

	return r
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			header := req.Header.Get("Authorization")
			got := strings.TrimPrefix(header, "Bearer ")
			if header == got || got != token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
