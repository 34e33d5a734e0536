/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend
  5. requireAuth: Bearer-token validation on everything except
                 /health and /api/auth/*

AUTH:
  Protected routes expect "Authorization: Bearer <token>". The resolved
  user is stored in the request context; handlers read it with
  currentUserID.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/worklog-engine/worklog"
)

type contextKey string

const userContextKey contextKey = "user"

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Everything else requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Route("/works", func(r chi.Router) {
				r.Get("/", h.ListWorks)
				r.Post("/", h.CreateWork)
				r.Post("/{id}/close", h.CloseWork)
				r.Post("/{id}/timer/start", h.StartTimer)
				r.Post("/{id}/timer/stop", h.StopTimer)
				r.Get("/{id}/timer", h.GetTimerState)
				r.Get("/{id}/entries", h.ListEntries)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/summary", h.GetSummary)
			})
		})
	})

	return r
}

// requireAuth validates the bearer token and stores the user ID in the
// request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}

		user, err := h.Auth.Validate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, worklog.UserID(user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUserID returns the authenticated user set by requireAuth.
func currentUserID(r *http.Request) worklog.UserID {
	id, _ := r.Context().Value(userContextKey).(worklog.UserID)
	return id
}
