/*
handlers_test.go - HTTP tests for the API

Tests run the real router against an in-memory SQLite store:
- Session lifecycle (create, activate, cookie, deactivate, delete, archive)
- Player ledger routes under an active session
- Daily goal routes
- Error mapping (400, 401, 403, 404, 409)
*/
package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/repboard/archive"
	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/session"
	"github.com/warp/repboard/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testAdminPassword = "letmein"

type testServer struct {
	t        *testing.T
	router   http.Handler
	registry *session.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dates, err := generic.NewDateResolver("America/Los_Angeles")
	require.NoError(t, err)
	// Dec 9 in Los Angeles
	dates.Now = func() time.Time { return time.Date(2025, 12, 10, 3, 0, 0, 0, time.UTC) }

	registry := session.NewRegistry(store, archive.NewEngine(store, store), dates,
		session.WithBcryptCost(bcrypt.MinCost))
	cookies, err := session.NewCookies(session.CookieConfig{HashKey: []byte("0123456789abcdef0123456789abcdef")})
	require.NoError(t, err)

	h := NewHandler(Deps{
		Sessions:  registry,
		Cookies:   cookies,
		Recorder:  exercise.NewRecorder(store, dates),
		Goals:     exercise.NewGoals(store, dates, exercise.DefaultDailyGoal),
		Roster:    exercise.NewRoster(store),
		Health:    store,
		PublicURL: "https://reps.example/",
	})
	return &testServer{
		t:        t,
		router:   NewRouter(h, RouterOptions{CORSOrigins: []string{"*"}}),
		registry: registry,
	}
}

// do sends body (nil, a string, or a value to marshal) with the cookie.
func (s *testServer) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// createAndActivate opens a session and returns its id and cookie.
func (s *testServer) createAndActivate(name, kind string) (int64, *http.Cookie) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/sessions", map[string]string{"name": name, "password": "secret", "kind": kind}, nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess SessionDTO
	decode(s.t, rec, &sess)

	rec = s.do(http.MethodPost, "/api/sessions/"+itoa(sess.ID)+"/activate", map[string]string{"password": "secret"}, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := findCookie(rec, session.CookieName)
	require.NotNil(s.t, cookie)
	return sess.ID, cookie
}

func (s *testServer) addPlayer(cookie *http.Cookie, name string) PlayerDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/players", map[string]string{"name": name}, cookie)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p PlayerDTO
	decode(s.t, rec, &p)
	return p
}

func (s *testServer) record(cookie *http.Cookie, playerID int64, amount string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(http.MethodPost, "/api/players/"+itoa(playerID)+"/exercise", `{"amount":`+amount+`}`, cookie)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	decode(t, rec, &e)
	return e
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func itoa(id int64) string {
	return generic.SessionID(id).String()
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestSessions_CreateListAndActive(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: No cookie
	// THEN: There is no active session
	rec := s.do(http.MethodGet, "/api/sessions/active", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	id, cookie := s.createAndActivate("office", "plank")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	rec = s.do(http.MethodGet, "/api/sessions/active", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var active SessionDTO
	decode(t, rec, &active)
	assert.Equal(t, id, active.ID)
	assert.Equal(t, "timed", active.Kind)
	assert.Equal(t, "minutes", active.Unit)
	assert.Equal(t, "2025-12-09", active.CreatedAtLocalDate)

	rec = s.do(http.MethodGet, "/api/sessions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []SessionDTO
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "office", list[0].Name)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestSessions_CreateErrors(t *testing.T) {
	s := newTestServer(t)
	s.createAndActivate("office", "counted")

	tests := []struct {
		name   string
		body   any
		status int
		field  string
	}{
		{"duplicate name", map[string]string{"name": "office", "password": "secret"}, http.StatusConflict, ""},
		{"short password", map[string]string{"name": "gym", "password": "abc"}, http.StatusBadRequest, "password"},
		{"unknown kind", map[string]string{"name": "gym", "password": "secret", "kind": "squats"}, http.StatusBadRequest, "kind"},
		{"missing body", nil, http.StatusBadRequest, "body"},
		{"malformed body", `{"name":`, http.StatusBadRequest, "body"},
		{"password over bcrypt limit", map[string]string{"name": "gym", "password": strings.Repeat("p", 80)}, http.StatusBadRequest, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/sessions", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decodeError(t, rec).Field)
			}
		})
	}
}

func TestSessions_ActivateWrongPassword(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.createAndActivate("office", "counted")

	rec := s.do(http.MethodPost, "/api/sessions/"+itoa(id)+"/activate", map[string]string{"password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, findCookie(rec, session.CookieName))

	rec = s.do(http.MethodPost, "/api/sessions/999/activate", map[string]string{"password": "secret"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_ForgedCookieIsIgnored(t *testing.T) {
	s := newTestServer(t)
	s.createAndActivate("office", "counted")

	forged := &http.Cookie{Name: session.CookieName, Value: "1"}
	rec := s.do(http.MethodGet, "/api/players", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessions_Deactivate(t *testing.T) {
	s := newTestServer(t)
	_, cookie := s.createAndActivate("office", "counted")

	rec := s.do(http.MethodPost, "/api/sessions/deactivate", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := findCookie(rec, session.CookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestSessions_Delete(t *testing.T) {
	s := newTestServer(t)
	ownID, cookie := s.createAndActivate("office", "counted")
	otherID, _ := s.createAndActivate("gym", "counted")

	// GIVEN: No admin credential configured yet
	rec := s.do(http.MethodDelete, "/api/sessions/"+itoa(otherID), map[string]string{"adminPassword": testAdminPassword}, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := s.registry.BootstrapAdminPassword(t.Context(), testAdminPassword)
	require.NoError(t, err)

	tests := []struct {
		name   string
		id     int64
		body   any
		status int
	}{
		{"empty body", otherID, nil, http.StatusUnauthorized},
		{"wrong admin password", otherID, map[string]string{"adminPassword": "nope"}, http.StatusForbidden},
		{"session password is not admin", otherID, map[string]string{"adminPassword": "secret"}, http.StatusForbidden},
		{"unknown session", 999, map[string]string{"adminPassword": testAdminPassword}, http.StatusNotFound},
		{"own active session", ownID, map[string]string{"adminPassword": testAdminPassword}, http.StatusBadRequest},
		{"other session", otherID, map[string]string{"adminPassword": testAdminPassword}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodDelete, "/api/sessions/"+itoa(tt.id), tt.body, cookie)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec = s.do(http.MethodGet, "/api/sessions", nil, nil)
	var list []SessionDTO
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, ownID, list[0].ID)
}

func TestSessions_ArchiveAndHistory(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.createAndActivate("office", "counted")
	p := s.addPlayer(cookie, "ana")
	require.Equal(t, http.StatusOK, s.record(cookie, p.ID, "20").Code)

	_, err := s.registry.BootstrapAdminPassword(t.Context(), testAdminPassword)
	require.NoError(t, err)

	rec := s.do(http.MethodPost, "/api/sessions/"+itoa(id)+"/archive", map[string]string{"adminPassword": "nope"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/sessions/"+itoa(id)+"/archive", map[string]string{"adminPassword": testAdminPassword}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out ArchiveDTO
	decode(t, rec, &out)
	tables := make([]string, len(out.Snapshots))
	for i, snap := range out.Snapshots {
		tables[i] = snap.Table
		assert.Equal(t, 1, snap.Rows)
	}
	assert.Equal(t, []string{"players", "ledger_entries", "daily_goal_entries"}, tables)

	rec = s.do(http.MethodGet, "/api/sessions/"+itoa(id)+"/history", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []SnapshotDTO
	decode(t, rec, &history)
	assert.Len(t, history, 3)

	rec = s.do(http.MethodGet, "/api/sessions/999/history", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_ShareLink(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.createAndActivate("office", "counted")

	rec := s.do(http.MethodGet, "/api/sessions/"+itoa(id)+"/share-link", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var link ShareLinkDTO
	decode(t, rec, &link)
	assert.Len(t, link.ShortCode, session.ShortCodeLength)
	assert.Equal(t, "https://reps.example/join/"+link.ShortCode, link.ShareURL)

	rec = s.do(http.MethodGet, "/api/sessions/by-code/"+strings.ToUpper(link.ShortCode), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found SessionDTO
	decode(t, rec, &found)
	assert.Equal(t, id, found.ID)

	rec = s.do(http.MethodGet, "/api/sessions/by-code/zzzzzzzz", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PLAYERS & LEDGER
// =============================================================================

func TestPlayers_RequireActiveSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/players", "/api/competition", "/api/settings/theme"} {
		rec := s.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "No active session", decodeError(t, rec).Error)
	}
}

func TestPlayers_RecordAndLeaderboard(t *testing.T) {
	s := newTestServer(t)
	_, cookie := s.createAndActivate("office", "counted")
	ana := s.addPlayer(cookie, "ana")
	bo := s.addPlayer(cookie, "bo")
	assert.Equal(t, 0.0, ana.Total)

	rec := s.do(http.MethodPost, "/api/players", map[string]string{"name": "ana"}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// GIVEN: ana records 30 then removes 50
	// WHEN: The removal would take the total below zero
	// THEN: The total clamps to zero
	rec = s.record(cookie, ana.ID, "30")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated PlayerDTO
	decode(t, rec, &updated)
	assert.Equal(t, 30.0, updated.Total)

	rec = s.record(cookie, ana.ID, "-50")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &updated)
	assert.Equal(t, 0.0, updated.Total)

	require.Equal(t, http.StatusOK, s.record(cookie, bo.ID, "12").Code)

	rec = s.do(http.MethodGet, "/api/players", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []PlayerDTO
	decode(t, rec, &board)
	require.Len(t, board, 2)
	assert.Equal(t, "bo", board[0].Name)
	assert.Equal(t, 12.0, board[0].Total)
	assert.Equal(t, "ana", board[1].Name)

	rec = s.do(http.MethodGet, "/api/players/"+itoa(ana.ID)+"/history", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var days []DailySummaryDTO
	decode(t, rec, &days)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-12-09", days[0].Date)
	assert.Equal(t, 0.0, days[0].Total)
	assert.Equal(t, 1, days[0].Additions)
	assert.Equal(t, 1, days[0].Removals)
}

func TestPlayers_RecordValidation(t *testing.T) {
	s := newTestServer(t)
	_, cookie := s.createAndActivate("plank club", "timed")
	p := s.addPlayer(cookie, "ana")

	rec := s.record(cookie, p.ID, "1.25")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated PlayerDTO
	decode(t, rec, &updated)
	assert.Equal(t, 1.25, updated.Total)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		field  string
	}{
		{"zero amount", "/api/players/" + itoa(p.ID) + "/exercise", `{"amount":0}`, http.StatusBadRequest, "amount"},
		{"off-step amount", "/api/players/" + itoa(p.ID) + "/exercise", `{"amount":1.3}`, http.StatusBadRequest, "amount"},
		{"bad day", "/api/players/" + itoa(p.ID) + "/exercise", `{"amount":1,"day":"12/09/2025"}`, http.StatusBadRequest, "day"},
		{"quoted amount", "/api/players/" + itoa(p.ID) + "/exercise", `{"amount":"7"}`, http.StatusBadRequest, "amount"},
		{"null amount", "/api/players/" + itoa(p.ID) + "/exercise", `{"amount":null}`, http.StatusBadRequest, "amount"},
		{"missing amount", "/api/players/" + itoa(p.ID) + "/exercise", `{"day":"2025-12-09"}`, http.StatusBadRequest, "amount"},
		{"bad player id", "/api/players/abc/exercise", `{"amount":1}`, http.StatusBadRequest, "id"},
		{"unknown player", "/api/players/999/exercise", `{"amount":1}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tt.path, tt.body, cookie)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decodeError(t, rec).Field)
			}
		})
	}
}

func TestPlayers_ScopedToActiveSession(t *testing.T) {
	s := newTestServer(t)
	_, officeCookie := s.createAndActivate("office", "counted")
	_, gymCookie := s.createAndActivate("gym", "counted")
	p := s.addPlayer(officeCookie, "ana")

	// GIVEN: A player of another session
	// THEN: It is invisible from this one
	rec := s.record(gymCookie, p.ID, "10")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, "/api/players/"+itoa(p.ID), nil, gymCookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/api/players/"+itoa(p.ID), nil, officeCookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/players", nil, officeCookie)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// =============================================================================
// DAILY GOALS
// =============================================================================

func TestDailyGoal_TargetAndStats(t *testing.T) {
	s := newTestServer(t)
	_, cookie := s.createAndActivate("office", "counted")
	p := s.addPlayer(cookie, "ana")
	base := "/api/players/" + itoa(p.ID)

	rec := s.do(http.MethodGet, base+"/daily-goal-target", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var target DailyGoalTargetDTO
	decode(t, rec, &target)
	assert.Equal(t, 100.0, target.DailyGoal)

	rec = s.do(http.MethodPut, base+"/daily-goal-target", `{"dailyGoal":0}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "dailyGoal", decodeError(t, rec).Field)

	rec = s.do(http.MethodPut, base+"/daily-goal-target", `{"dailyGoal":50}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, http.StatusOK, s.record(cookie, p.ID, "60").Code)
	require.Equal(t, http.StatusOK, s.record(cookie, p.ID, "-5").Code)

	rec = s.do(http.MethodGet, base+"/daily-goal", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress DailyGoalDTO
	decode(t, rec, &progress)
	assert.Equal(t, "2025-12-09", progress.Date)
	assert.Equal(t, 55.0, progress.Total)

	rec = s.do(http.MethodGet, base+"/daily-goal?date=2025-12-01", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &progress)
	assert.Equal(t, 0.0, progress.Total)

	// GIVEN: A second day that falls short of the target
	rec = s.do(http.MethodPost, base+"/exercise", `{"amount":10,"day":"2025-12-01"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: Reading the stats
	// THEN: Only the met day is listed
	rec = s.do(http.MethodGet, base+"/daily-goal-stats", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats GoalStatsDTO
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.GoalsMet)
	assert.Equal(t, 50.0, stats.DailyGoal)
	require.Len(t, stats.Days, 1)
	assert.Equal(t, "2025-12-09", stats.Days[0].Date)
	assert.Equal(t, 55.0, stats.Days[0].Total)
	assert.Equal(t, 50.0, stats.Days[0].Target)
}

// =============================================================================
// COMPETITION, SETTINGS, HEALTH
// =============================================================================

func TestCompetition(t *testing.T) {
	s := newTestServer(t)
	_, cookie := s.createAndActivate("office", "counted")

	rec := s.do(http.MethodGet, "/api/competition", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/competition", `{"endDate":"next friday"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/competition", `{"endDate":"2025-12-31T23:59"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/competition", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"endDate":"2025-12-31T23:59"}`, rec.Body.String())
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)
	_, cookie := s.createAndActivate("office", "counted")

	rec := s.do(http.MethodGet, "/api/settings/theme", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/settings/theme", `{"value":"dark"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/settings/theme", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var setting SettingDTO
	decode(t, rec, &setting)
	assert.Equal(t, "theme", setting.Key)
	assert.Equal(t, "dark", setting.Value)

	rec = s.do(http.MethodPut, "/api/settings/"+generic.SettingAdminPassword, `{"value":"x"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWriteDomainError_PartialArchive(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/1/archive", nil)
	err := &archive.PartialArchiveError{
		Archived: []archive.Table{archive.TablePlayers},
		Failed:   map[archive.Table]error{archive.TableSettings: assert.AnError},
	}

	writeDomainError(rec, req, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Details struct {
			Archived []string          `json:"archived"`
			Failed   map[string]string `json:"failed"`
		} `json:"details"`
	}
	decode(t, rec, &body)
	assert.Equal(t, []string{"players"}, body.Details.Archived)
	assert.Contains(t, body.Details.Failed, "settings")
}

func TestExerciseRequest_Amount(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"amount":-2.75}`, "-2.75"},
		{`{"amount":12}`, "12"},
		{`{"amount":1e2}`, "100"},
		{`{"amount":"7"}`, ""},
		{`{"amount":true}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req ExerciseRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			got, err := req.amount()
			if tt.want == "" {
				var verr *generic.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "amount", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), got.String())
		})
	}
}
