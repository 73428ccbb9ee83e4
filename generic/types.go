/*
Package generic provides the core ledger types shared by every tenant.

PURPOSE:
  This package contains domain-agnostic types for tracking repeated exercise
  counts. Whether a session counts push-ups or times planks, the same ledger
  entries, clamp rules and store contracts apply. Domain packages (exercise,
  session, archive) build on these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - SessionID / PlayerID / EntryID: Type-safe identifiers
  - LedgerKind: Which of the two append-only logs an entry belongs to
  - Entry: An immutable ledger row (lifetime or daily goal)
  - Player: A participant with a derived running total
  - GoalTarget, Setting, CompetitionWindow: Tenant-scoped rows

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, only appended
  2. Precision: Uses decimal.Decimal so quarter units sum exactly
  3. Type Safety: Strong typing for IDs prevents mixing player/session IDs
  4. Derived state: Player.Total always equals the sum of lifetime entries

USAGE:
  entry := generic.Entry{
      Kind:      generic.LedgerLifetime,
      SessionID: 1,
      PlayerID:  7,
      Amount:    decimal.NewFromInt(25),
      Day:       generic.MustParseDay("2025-12-09"),
  }

SEE ALSO:
  - ledger.go: Clamp rules and the Ledger interface
  - store.go: Persistence interfaces
  - time.go: Business day resolution
*/
package generic

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SessionID int64
type PlayerID int64
type EntryID int64

func (id SessionID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id PlayerID) String() string  { return strconv.FormatInt(int64(id), 10) }
func (id EntryID) String() string   { return strconv.FormatInt(int64(id), 10) }

// ParseSessionID parses a base-10 session id from a path or cookie value.
func ParseSessionID(s string) (SessionID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: "id", Message: fmt.Sprintf("invalid session id %q", s)}
	}
	return SessionID(n), nil
}

// ParsePlayerID parses a base-10 player id from a path value.
func ParsePlayerID(s string) (PlayerID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: "id", Message: fmt.Sprintf("invalid player id %q", s)}
	}
	return PlayerID(n), nil
}

// =============================================================================
// LEDGER KIND - Tagged union over the two append-only logs
// =============================================================================

// LedgerKind selects one of the two parallel logs kept per player.
type LedgerKind int

const (
	// LedgerLifetime records every count adjustment. Its sum is Player.Total.
	LedgerLifetime LedgerKind = iota + 1
	// LedgerDailyGoal is the shadow log used only for daily goal progress.
	LedgerDailyGoal
)

func (k LedgerKind) String() string {
	switch k {
	case LedgerLifetime:
		return "lifetime"
	case LedgerDailyGoal:
		return "daily_goal"
	default:
		return "unknown"
	}
}

// Valid reports whether k names one of the two ledgers.
func (k LedgerKind) Valid() bool {
	return k == LedgerLifetime || k == LedgerDailyGoal
}

// =============================================================================
// ENTRY - Immutable ledger row
// =============================================================================

// Entry is one append-only row of either ledger.
type Entry struct {
	ID        EntryID
	Kind      LedgerKind
	SessionID SessionID
	PlayerID  PlayerID
	Amount    decimal.Decimal
	Day       Day

	// GoalTarget is the daily goal in effect when a LedgerDailyGoal entry was
	// written. Always nil for lifetime entries.
	GoalTarget *decimal.Decimal

	CreatedAt time.Time
}

// SumEntries adds up entry amounts exactly.
func SumEntries(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// =============================================================================
// TENANT ROWS
// =============================================================================

// Player belongs to exactly one session. Total is derived from the lifetime ledger.
type Player struct {
	ID        PlayerID
	SessionID SessionID
	Name      string
	Total     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GoalTarget is the mutable, currently configured daily goal of a player.
type GoalTarget struct {
	SessionID SessionID
	PlayerID  PlayerID
	Target    decimal.Decimal
	UpdatedAt time.Time
}

// Setting is a key/value pair. SessionID is nil only for global keys.
type Setting struct {
	SessionID *SessionID
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SettingAdminPassword is the one global key. It gates cross-tenant admin actions.
const SettingAdminPassword = "adminPassword"

// CompetitionWindow holds the end of a session's competition. EndsAt is a naive
// local datetime string and is never timezone-converted.
type CompetitionWindow struct {
	SessionID SessionID
	EndsAt    string
	UpdatedAt time.Time
}
