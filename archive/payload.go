/*
Package archive snapshots tenant tables into write-once JSON records.

PURPOSE:
  Before risky session operations an admin can archive a session. Every
  tenant-scoped table that has at least one row for the session becomes
  one snapshot, tagged with the table it captures.

PAYLOADS ARE A SUM TYPE:
  Each table has its own row shape. Payload is implemented by exactly one
  type per table, so a reader switching on the concrete type gets the
  right fields at compile time instead of an untyped map.

    players             → PlayersPayload
    ledger_entries      → LifetimeLedgerPayload
    daily_goal_targets  → GoalTargetsPayload
    daily_goal_entries  → GoalLedgerPayload
    settings            → SettingsPayload
    competition_windows → CompetitionWindowPayload

  Decode(table, raw) is the inverse of json.Marshal(payload).

SEE ALSO:
  - engine.go: Archive and History
  - store/sqlite/archive.go: Source and Sink over SQLite
*/
package archive

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/repboard/generic"
)

// =============================================================================
// TABLES
// =============================================================================

// Table names one tenant-scoped logical table.
type Table string

const (
	TablePlayers            Table = "players"
	TableLifetimeLedger     Table = "ledger_entries"
	TableGoalTargets        Table = "daily_goal_targets"
	TableGoalLedger         Table = "daily_goal_entries"
	TableSettings           Table = "settings"
	TableCompetitionWindows Table = "competition_windows"
)

// Tables lists every archived table in snapshot order.
var Tables = []Table{
	TablePlayers,
	TableLifetimeLedger,
	TableGoalTargets,
	TableGoalLedger,
	TableSettings,
	TableCompetitionWindows,
}

// =============================================================================
// ROW SHAPES
// =============================================================================

type PlayerRow struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type EntryRow struct {
	ID         int64            `json:"id"`
	PlayerID   int64            `json:"playerId"`
	Amount     decimal.Decimal  `json:"amount"`
	Day        string           `json:"day"`
	GoalTarget *decimal.Decimal `json:"goalTarget,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

type GoalTargetRow struct {
	PlayerID  int64           `json:"playerId"`
	Target    decimal.Decimal `json:"target"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type SettingRow struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CompetitionWindowRow struct {
	EndsAt    string    `json:"endsAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// =============================================================================
// PAYLOAD VARIANTS
// =============================================================================

// Payload is the row set of one table.
type Payload interface {
	Table() Table
	Len() int
	isPayload()
}

type PlayersPayload []PlayerRow
type LifetimeLedgerPayload []EntryRow
type GoalTargetsPayload []GoalTargetRow
type GoalLedgerPayload []EntryRow
type SettingsPayload []SettingRow
type CompetitionWindowPayload []CompetitionWindowRow

func (PlayersPayload) Table() Table           { return TablePlayers }
func (LifetimeLedgerPayload) Table() Table    { return TableLifetimeLedger }
func (GoalTargetsPayload) Table() Table       { return TableGoalTargets }
func (GoalLedgerPayload) Table() Table        { return TableGoalLedger }
func (SettingsPayload) Table() Table          { return TableSettings }
func (CompetitionWindowPayload) Table() Table { return TableCompetitionWindows }

func (p PlayersPayload) Len() int           { return len(p) }
func (p LifetimeLedgerPayload) Len() int    { return len(p) }
func (p GoalTargetsPayload) Len() int       { return len(p) }
func (p GoalLedgerPayload) Len() int        { return len(p) }
func (p SettingsPayload) Len() int          { return len(p) }
func (p CompetitionWindowPayload) Len() int { return len(p) }

func (PlayersPayload) isPayload()           {}
func (LifetimeLedgerPayload) isPayload()    {}
func (GoalTargetsPayload) isPayload()       {}
func (GoalLedgerPayload) isPayload()        {}
func (SettingsPayload) isPayload()          {}
func (CompetitionWindowPayload) isPayload() {}

// Encode marshals a payload for storage.
func Encode(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// Decode restores the typed payload stored under table.
func Decode(table Table, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch table {
	case TablePlayers:
		var v PlayersPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TableLifetimeLedger:
		var v LifetimeLedgerPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TableGoalTargets:
		var v GoalTargetsPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TableGoalLedger:
		var v GoalLedgerPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TableSettings:
		var v SettingsPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TableCompetitionWindows:
		var v CompetitionWindowPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("decode snapshot: unknown table %q", table)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", table, err)
	}
	return p, nil
}

// =============================================================================
// CONVERSIONS FROM LIVE ROWS
// =============================================================================

func playersPayload(players []generic.Player) PlayersPayload {
	out := make(PlayersPayload, len(players))
	for i, p := range players {
		out[i] = PlayerRow{ID: int64(p.ID), Name: p.Name, Total: p.Total, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	}
	return out
}

func entryRows(entries []generic.Entry) []EntryRow {
	out := make([]EntryRow, len(entries))
	for i, e := range entries {
		out[i] = EntryRow{
			ID:         int64(e.ID),
			PlayerID:   int64(e.PlayerID),
			Amount:     e.Amount,
			Day:        e.Day.String(),
			GoalTarget: e.GoalTarget,
			CreatedAt:  e.CreatedAt,
		}
	}
	return out
}

func goalTargetsPayload(targets []generic.GoalTarget) GoalTargetsPayload {
	out := make(GoalTargetsPayload, len(targets))
	for i, t := range targets {
		out[i] = GoalTargetRow{PlayerID: int64(t.PlayerID), Target: t.Target, UpdatedAt: t.UpdatedAt}
	}
	return out
}

func settingsPayload(settings []generic.Setting) SettingsPayload {
	out := make(SettingsPayload, len(settings))
	for i, s := range settings {
		out[i] = SettingRow{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt}
	}
	return out
}

func competitionWindowPayload(windows []generic.CompetitionWindow) CompetitionWindowPayload {
	out := make(CompetitionWindowPayload, len(windows))
	for i, w := range windows {
		out[i] = CompetitionWindowRow{EndsAt: w.EndsAt, UpdatedAt: w.UpdatedAt}
	}
	return out
}
