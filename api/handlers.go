/*
handlers.go - HTTP API handlers for the exercise ledger

PURPOSE:
  Exposes the ledger, goal tracker and session registry via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS (all under /api):
  Players (active session required):
    GET    /players                          Leaderboard
    POST   /players                          Add player
    DELETE /players/{id}                     Remove player and its ledgers
    POST   /players/{id}/exercise            Record a delta
    GET    /players/{id}/history             Per-day lifetime totals
    GET    /players/{id}/daily-goal          Shadow ledger sum for a day
    GET    /players/{id}/daily-goal-target   Current target
    PUT    /players/{id}/daily-goal-target   Set target
    GET    /players/{id}/daily-goal-stats    Goal history

  Sessions:
    GET    /sessions                         List
    POST   /sessions                         Create
    GET    /sessions/active                  Caller's active session (cookie)
    POST   /sessions/deactivate              Clear cookie
    GET    /sessions/by-code/{code}          Resolve share code
    POST   /sessions/{id}/activate           Verify password, set cookie
    DELETE /sessions/{id}                    Admin: delete with cascade
    POST   /sessions/{id}/archive            Admin: snapshot tenant tables
    GET    /sessions/{id}/history            Archive snapshots
    GET    /sessions/{id}/share-link         Short code and join URL

  Tenant key/values (active session required):
    GET|PUT /competition                     Naive local end datetime
    GET|PUT /settings/{key}                  Settings

REQUEST FLOW:
  1. Parse path and body, validate tags
  2. Resolve the active session from the cookie (requireSession)
  3. Call the domain package
  4. Serialize response, or map the error in writeDomainError

ERROR HANDLING:
  - 400: ValidationError, own active session on delete
  - 401: No active session, bad session password, missing admin password
  - 403: Bad admin password
  - 404: Unknown player, session, share code, setting
  - 409: Duplicate session or player name
  - 500: StoreError, partial archive (with archived/failed tables)

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: requireSession, metrics
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/warp/repboard/archive"
	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/logging"
	"github.com/warp/repboard/session"
	"github.com/warp/repboard/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports store health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the handler's collaborators.
type Deps struct {
	Sessions *session.Registry
	Cookies  *session.Cookies
	Recorder *exercise.Recorder
	Goals    *exercise.Goals
	Roster   *exercise.Roster
	Health   Pinger

	// PublicURL prefixes share links. Empty derives it from the request.
	PublicURL string
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	sessions  *session.Registry
	cookies   *session.Cookies
	recorder  *exercise.Recorder
	goals     *exercise.Goals
	roster    *exercise.Roster
	health    Pinger
	publicURL string
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		sessions:  d.Sessions,
		cookies:   d.Cookies,
		recorder:  d.Recorder,
		goals:     d.Goals,
		roster:    d.Roster,
		health:    d.Health,
		publicURL: strings.TrimRight(d.PublicURL, "/"),
	}
}

// =============================================================================
// PLAYER HANDLERS
// =============================================================================

// ListPlayers returns the leaderboard of the active session.
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	sess := activeSession(r)
	players, err := h.roster.Leaderboard(r.Context(), sess.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerDTOs(players))
}

// CreatePlayer adds a player to the active session.
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req CreatePlayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := h.roster.Add(r.Context(), activeSession(r).ID, req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlayerDTO(p))
}

// DeletePlayer removes a player together with both ledgers.
func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := generic.ParsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.roster.Remove(r.Context(), activeSession(r).ID, playerID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordExercise applies a delta to the lifetime and daily-goal ledgers.
func (h *Handler) RecordExercise(w http.ResponseWriter, r *http.Request) {
	playerID, err := generic.ParsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req ExerciseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	amount, err := req.amount()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	sess := activeSession(r)
	res, err := h.recorder.RecordDelta(r.Context(), exercise.DeltaInput{
		SessionID: sess.ID,
		PlayerID:  playerID,
		Kind:      sess.Kind,
		Amount:    amount,
		Day:       req.Day,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerDTO(res.Player))
}

// PlayerHistory returns per-day lifetime totals, newest first.
func (h *Handler) PlayerHistory(w http.ResponseWriter, r *http.Request) {
	playerID, err := generic.ParsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	limit := exercise.DefaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeDomainError(w, r, &generic.ValidationError{Field: "days", Message: "days must be a positive integer"})
			return
		}
		limit = n
	}
	days, err := h.roster.DailyHistory(r.Context(), activeSession(r).ID, playerID, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDailySummaryDTOs(days))
}

// =============================================================================
// DAILY GOAL HANDLERS
// =============================================================================

// GetDailyGoal returns the shadow-ledger sum for ?date= or today.
func (h *Handler) GetDailyGoal(w http.ResponseWriter, r *http.Request) {
	playerID, err := generic.ParsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	day, total, err := h.goals.ProgressToday(r.Context(), activeSession(r).ID, playerID, r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyGoalDTO{Date: day.String(), Total: total.InexactFloat64()})
}

// GetDailyGoalTarget returns the current target or the default.
func (h *Handler) GetDailyGoalTarget(w http.ResponseWriter, r *http.Request) {
	playerID, err := generic.ParsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	target, err := h.goals.GetTarget(r.Context(), activeSession(r).ID, playerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyGoalTargetDTO{DailyGoal: target.InexactFloat64()})
}

// PutDailyGoalTarget sets the target used for future shadow entries.
func (h *Handler) PutDailyGoalTarget(w http.ResponseWriter, r *http.Request) {
	playerID, err := generic.ParsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req DailyGoalTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	t, err := h.goals.SetTarget(r.Context(), activeSession(r).ID, playerID, req.DailyGoal)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyGoalTargetDTO{DailyGoal: t.Target.InexactFloat64()})
}

// GetDailyGoalStats evaluates every active day against its own target.
func (h *Handler) GetDailyGoalStats(w http.ResponseWriter, r *http.Request) {
	playerID, err := generic.ParsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	hist, err := h.goals.EvaluateHistory(r.Context(), activeSession(r).ID, playerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalStatsDTO(hist))
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// ListSessions returns every session.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(sessions))
}

// CreateSession opens a new tenant.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s, err := h.sessions.Create(r.Context(), session.CreateInput{Name: req.Name, Password: req.Password, Kind: req.Kind})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(s))
}

// GetActiveSession returns the session named by the caller's cookie.
func (h *Handler) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.ResolveActive(r.Context(), h.cookies.ActiveID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if s == nil {
		writeError(w, http.StatusUnauthorized, "No active session", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*s))
}

// ActivateSession verifies the password and issues the cookie.
func (h *Handler) ActivateSession(w http.ResponseWriter, r *http.Request) {
	id, err := generic.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req ActivateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s, err := h.sessions.Activate(r.Context(), id, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.cookies.Issue(w, s.ID); err != nil {
		writeDomainError(w, r, &generic.StoreError{Op: "issue session cookie", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// DeactivateSession clears the caller's cookie.
func (h *Handler) DeactivateSession(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession removes a session. Requires the admin password.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := generic.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req AdminRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.sessions.Delete(r.Context(), id, req.AdminPassword, h.cookies.ActiveID(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveSession snapshots every non-empty tenant table.
func (h *Handler) ArchiveSession(w http.ResponseWriter, r *http.Request) {
	id, err := generic.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req AdminRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	snaps, err := h.sessions.Archive(r.Context(), id, req.AdminPassword)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ArchiveDTO{Snapshots: toSnapshotDTOs(snaps)})
}

// SessionHistory lists archive snapshots, oldest first.
func (h *Handler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	id, err := generic.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	snaps, err := h.sessions.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTOs(snaps))
}

// ShareLink returns the session's short code and join URL.
func (h *Handler) ShareLink(w http.ResponseWriter, r *http.Request) {
	id, err := generic.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	code, err := h.sessions.ShareCode(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ShareLinkDTO{ShortCode: code, ShareURL: h.origin(r) + "/join/" + code})
}

// SessionByCode resolves a share code.
func (h *Handler) SessionByCode(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.FindByShortCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

func (h *Handler) origin(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// =============================================================================
// COMPETITION & SETTINGS HANDLERS
// =============================================================================

// GetCompetition returns the end datetime verbatim.
func (h *Handler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.CompetitionEnd(r.Context(), activeSession(r).ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CompetitionDTO{EndDate: c.EndsAt})
}

// PutCompetition stores the end datetime verbatim.
func (h *Handler) PutCompetition(w http.ResponseWriter, r *http.Request) {
	var req CompetitionDTO
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	c, err := h.sessions.SetCompetitionEnd(r.Context(), activeSession(r).ID, req.EndDate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CompetitionDTO{EndDate: c.EndsAt})
}

// GetSetting returns one tenant setting.
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Setting(r.Context(), activeSession(r).ID, chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingDTO(s))
}

// PutSetting upserts one tenant setting.
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var req SettingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s, err := h.sessions.PutSetting(r.Context(), activeSession(r).ID, chi.URLParam(r, "key"), req.Value)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingDTO(s))
}

// Healthz pings the store.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// writeDomainError maps the error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		partial *archive.PartialArchiveError
		verr    *generic.ValidationError
		nferr   *generic.NotFoundError
	)
	switch {
	case errors.As(err, &partial):
		failed := make(map[string]string, len(partial.Failed))
		for t, cause := range partial.Failed {
			failed[string(t)] = cause.Error()
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("archive incomplete")
		writeError(w, http.StatusInternalServerError, "Archive incomplete", map[string]any{
			"archived": partial.Archived,
			"failed":   failed,
		})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &nferr):
		writeError(w, http.StatusNotFound, nferr.Error(), nil)
	case errors.Is(err, generic.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, generic.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, generic.ErrConflict):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, generic.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// decodeJSON reads a required JSON body and validates its tags.
func decodeJSON(r *http.Request, dst any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return &generic.ValidationError{Field: "body", Message: "request body is required"}
	}
	return unmarshalAndValidate(raw, dst)
}

// decodeOptionalJSON accepts an empty body and leaves dst zero.
func decodeOptionalJSON(r *http.Request, dst any) error {
	raw, err := readBody(r)
	if err != nil || len(raw) == 0 {
		return err
	}
	return unmarshalAndValidate(raw, dst)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &generic.ValidationError{Field: "body", Message: "could not read request body"}
	}
	if len(raw) > maxBodyBytes {
		return nil, &generic.ValidationError{Field: "body", Message: "request body is too large"}
	}
	return bytes.TrimSpace(raw), nil
}

func unmarshalAndValidate(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return &generic.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return validation.ValidateStruct(dst)
}
