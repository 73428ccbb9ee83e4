/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies (rate limit key)
  3. Logger:     zerolog request logging (logging.RequestLogger)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus request counters per route pattern
  6. CORS:       Cross-origin requests for the frontend, with credentials

ROUTE GROUPS:
  /healthz              Liveness with a store ping
  /metrics              Prometheus scrape endpoint
  /api/sessions/*       Session registry (public, admin routes rate limited)
  /api/players/*        Players and ledgers (active session required)
  /api/competition      Competition end (active session required)
  /api/settings/{key}   Tenant settings (active session required)

SECURITY NOTE:
  Password-checking routes (activate, delete, archive) are rate limited per
  client IP with httprate.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: requireSession, recordMetrics
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/repboard/logging"
)

// RouterOptions tune the cross-cutting middleware.
type RouterOptions struct {
	CORSOrigins []string

	// RateLimitReqs per RateLimitWindow per IP on password routes.
	// Zero disables the limiter.
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(recordMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	limit := func(next http.Handler) http.Handler { return next }
	if opts.RateLimitReqs > 0 && opts.RateLimitWindow > 0 {
		limit = httprate.LimitByIP(opts.RateLimitReqs, opts.RateLimitWindow)
	}

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Get("/active", h.GetActiveSession)
			r.Post("/deactivate", h.DeactivateSession)
			r.Get("/by-code/{code}", h.SessionByCode)

			r.Get("/{id}/history", h.SessionHistory)
			r.Get("/{id}/share-link", h.ShareLink)

			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Post("/{id}/activate", h.ActivateSession)
				r.Delete("/{id}", h.DeleteSession)
				r.Post("/{id}/archive", h.ArchiveSession)
			})
		})

		// Tenant routes
		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)

			r.Route("/players", func(r chi.Router) {
				r.Get("/", h.ListPlayers)
				r.Post("/", h.CreatePlayer)
				r.Delete("/{id}", h.DeletePlayer)
				r.Post("/{id}/exercise", h.RecordExercise)
				r.Get("/{id}/history", h.PlayerHistory)
				r.Get("/{id}/daily-goal", h.GetDailyGoal)
				r.Get("/{id}/daily-goal-target", h.GetDailyGoalTarget)
				r.Put("/{id}/daily-goal-target", h.PutDailyGoalTarget)
				r.Get("/{id}/daily-goal-stats", h.GetDailyGoalStats)
			})

			r.Get("/competition", h.GetCompetition)
			r.Put("/competition", h.PutCompetition)
			r.Get("/settings/{key}", h.GetSetting)
			r.Put("/settings/{key}", h.PutSetting)
		})
	})

	return r
}
