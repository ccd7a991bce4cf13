/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the HR frontend
  5. Locale:     Accept-Language (or ?lang=) selects message language

ROUTE GROUPS:
  /api/staff/*       Leave listing, application, summary, entitlement
  /api/leaves/*      Decisions, deletion, attendance re-sync
  /api/companies     Admin seed
  /api/templates     Admin seed
  /api/scenarios/*   Demo scenarios
  /health            Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/leave-engine/i18n"
)

// DefaultAllowedOrigins is used when no origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(Locale)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/staff", func(r chi.Router) {
			r.Post("/", h.SaveStaff)
			r.Get("/{id}/leaves", h.ListLeaves)
			r.Post("/{id}/leaves", h.CreateLeave)
			r.Get("/{id}/leaves/summary", h.GetSummary)
			r.Get("/{id}/entitlement", h.GetEntitlement)
		})

		r.Route("/leaves", func(r chi.Router) {
			r.Patch("/{id}/status", h.UpdateStatus)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/reject", h.RejectLeave)
			r.Delete("/{id}", h.DeleteLeave)
			r.Post("/{id}/attendance/sync", h.SyncAttendance)
		})

		r.Post("/companies", h.SaveCompany)
		r.Post("/templates", h.SaveTemplate)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// Locale stores the caller's language preference on the request context.
// A "lang" query parameter wins over Accept-Language.
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := r.URL.Query().Get("lang")
		if locale == "" {
			locale = r.Header.Get("Accept-Language")
		}
		if locale != "" {
			r = r.WithContext(i18n.WithLocale(r.Context(), locale))
		}
		next.ServeHTTP(w, r)
	})
}
