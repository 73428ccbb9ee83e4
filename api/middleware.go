/*
middleware.go - Request-scoped middleware for the API

PURPOSE:
  requireSession resolves the active-session cookie once per request and
  hands the session to handlers through the context. recordMetrics feeds
  the Prometheus request counters using chi's route pattern as the label,
  so /players/7 and /players/9 share one series.

SEE ALSO:
  - session/cookie.go: Cookie signing
  - metrics/metrics.go: Collectors
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/repboard/logging"
	"github.com/warp/repboard/metrics"
	"github.com/warp/repboard/session"
)

type ctxKey int

const activeSessionKey ctxKey = iota

// requireSession rejects the request with 401 unless the cookie names an
// existing session.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.sessions.ResolveActive(r.Context(), h.cookies.ActiveID(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if s == nil {
			writeError(w, http.StatusUnauthorized, "No active session", nil)
			return
		}
		ctx := context.WithValue(r.Context(), activeSessionKey, *s)
		ctx = logging.ContextWithSessionID(ctx, int64(s.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// activeSession returns the session stored by requireSession.
func activeSession(r *http.Request) session.Session {
	s, _ := r.Context().Value(activeSessionKey).(session.Session)
	return s
}

func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, route, status, time.Since(start))
	})
}
