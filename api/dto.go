/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

NUMBERS:
  Amounts, totals and targets are decimals internally and JSON numbers on
  the wire. Every stored value is a multiple of 0.25, which float64 holds
  exactly, so the float conversion in toPlayerDTO and friends is lossless.

VALIDATION:
  Request types carry `validate` tags checked by validation.ValidateStruct.
  Domain rules (amount granularity, reserved keys, password policy) stay in
  the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/repboard/archive"
	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/session"
)

// =============================================================================
// PLAYERS
// =============================================================================

// PlayerDTO represents a player in API responses.
type PlayerDTO struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Total     float64 `json:"total"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// CreatePlayerRequest is the body for POST /players.
type CreatePlayerRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ExerciseRequest is the body for POST /players/{id}/exercise.
// Amount stays raw so a quoted number is rejected rather than coerced.
type ExerciseRequest struct {
	Amount json.RawMessage `json:"amount" validate:"required"`
	Day    string          `json:"day,omitempty" validate:"omitempty,day"`
}

// amount parses Amount as a JSON number.
func (r ExerciseRequest) amount() (decimal.Decimal, error) {
	raw := bytes.TrimSpace(r.Amount)
	if len(raw) == 0 || raw[0] == '"' {
		return decimal.Zero, &generic.ValidationError{Field: "amount", Message: "amount must be a number"}
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, &generic.ValidationError{Field: "amount", Message: "amount must be a number"}
	}
	return d, nil
}

// DailySummaryDTO is one day of GET /players/{id}/history.
type DailySummaryDTO struct {
	Date      string  `json:"date"`
	Total     float64 `json:"total"`
	Additions int     `json:"additions"`
	Removals  int     `json:"removals"`
}

// =============================================================================
// DAILY GOALS
// =============================================================================

// DailyGoalDTO is the response of GET /players/{id}/daily-goal.
type DailyGoalDTO struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// DailyGoalTargetRequest is the body for PUT /players/{id}/daily-goal-target.
type DailyGoalTargetRequest struct {
	DailyGoal decimal.Decimal `json:"dailyGoal"`
}

// DailyGoalTargetDTO is the response of the daily-goal-target routes.
type DailyGoalTargetDTO struct {
	DailyGoal float64 `json:"dailyGoal"`
}

// GoalDayDTO is one day on which the goal was met.
type GoalDayDTO struct {
	Date   string  `json:"date"`
	Total  float64 `json:"total"`
	Target float64 `json:"target"`
}

// GoalStatsDTO is the response of GET /players/{id}/daily-goal-stats.
// Days lists met days only, so len(Days) == GoalsMet.
type GoalStatsDTO struct {
	GoalsMet  int          `json:"goalsMet"`
	DailyGoal float64      `json:"dailyGoal"`
	Days      []GoalDayDTO `json:"days"`
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionDTO represents a session. The password hash never leaves the server.
type SessionDTO struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Kind               string `json:"kind"`
	Unit               string `json:"unit"`
	CreatedAtLocalDate string `json:"createdAtLocalDate"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

// CreateSessionRequest is the body for POST /sessions.
type CreateSessionRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"min=4,max=72"`
	Kind     string `json:"kind" validate:"omitempty,oneof=counted timed pushups plank"`
}

// ActivateRequest is the body for POST /sessions/{id}/activate.
type ActivateRequest struct {
	Password string `json:"password" validate:"required"`
}

// AdminRequest is the body for DELETE /sessions/{id} and archive.
type AdminRequest struct {
	AdminPassword string `json:"adminPassword"`
}

// ShareLinkDTO is the response of GET /sessions/{id}/share-link.
type ShareLinkDTO struct {
	ShortCode string `json:"shortCode"`
	ShareURL  string `json:"shareUrl"`
}

// SnapshotDTO is one archive snapshot. Data is the typed payload rows.
type SnapshotDTO struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"sessionId"`
	Table     string `json:"tableName"`
	Rows      int    `json:"rows"`
	Data      any    `json:"data"`
	CreatedAt string `json:"createdAt"`
}

// ArchiveDTO is the response of POST /sessions/{id}/archive.
type ArchiveDTO struct {
	Snapshots []SnapshotDTO `json:"snapshots"`
}

// =============================================================================
// COMPETITION & SETTINGS
// =============================================================================

// CompetitionDTO carries a naive local datetime, never timezone-converted.
type CompetitionDTO struct {
	EndDate string `json:"endDate" validate:"required"`
}

// SettingRequest is the body for PUT /settings/{key}.
type SettingRequest struct {
	Value string `json:"value"`
}

// SettingDTO is a tenant key/value pair.
type SettingDTO struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updatedAt"`
}

// =============================================================================
// ERRORS & HEALTH
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// HealthDTO is the response of GET /healthz.
type HealthDTO struct {
	Status string `json:"status"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toPlayerDTO(p generic.Player) PlayerDTO {
	return PlayerDTO{
		ID:        int64(p.ID),
		Name:      p.Name,
		Total:     p.Total.InexactFloat64(),
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func toPlayerDTOs(players []generic.Player) []PlayerDTO {
	dtos := make([]PlayerDTO, len(players))
	for i, p := range players {
		dtos[i] = toPlayerDTO(p)
	}
	return dtos
}

func toDailySummaryDTOs(days []exercise.DailySummary) []DailySummaryDTO {
	dtos := make([]DailySummaryDTO, len(days))
	for i, d := range days {
		dtos[i] = DailySummaryDTO{
			Date:      d.Day.String(),
			Total:     d.Total.InexactFloat64(),
			Additions: d.Additions,
			Removals:  d.Removals,
		}
	}
	return dtos
}

func toGoalStatsDTO(h exercise.GoalHistory) GoalStatsDTO {
	days := make([]GoalDayDTO, 0, h.GoalsMet)
	for _, d := range h.Days {
		if !d.Met {
			continue
		}
		days = append(days, GoalDayDTO{
			Date:   d.Day.String(),
			Total:  d.Total.InexactFloat64(),
			Target: d.Target.InexactFloat64(),
		})
	}
	return GoalStatsDTO{
		GoalsMet:  h.GoalsMet,
		DailyGoal: h.CurrentTarget.InexactFloat64(),
		Days:      days,
	}
}

func toSessionDTO(s session.Session) SessionDTO {
	return SessionDTO{
		ID:                 int64(s.ID),
		Name:               s.Name,
		Kind:               string(s.Kind),
		Unit:               s.Kind.Unit(),
		CreatedAtLocalDate: s.CreatedOn.String(),
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
	}
}

func toSessionDTOs(sessions []session.Session) []SessionDTO {
	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	return dtos
}

func toSnapshotDTOs(snaps []archive.Snapshot) []SnapshotDTO {
	dtos := make([]SnapshotDTO, len(snaps))
	for i, s := range snaps {
		dtos[i] = SnapshotDTO{
			ID:        s.ID,
			SessionID: int64(s.SessionID),
			Table:     string(s.Payload.Table()),
			Rows:      s.Payload.Len(),
			Data:      s.Payload,
			CreatedAt: formatTime(s.CreatedAt),
		}
	}
	return dtos
}

func toSettingDTO(s generic.Setting) SettingDTO {
	return SettingDTO{Key: s.Key, Value: s.Value, UpdatedAt: formatTime(s.UpdatedAt)}
}
