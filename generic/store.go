/*
store.go - Persistence interfaces for ledgers, players and goal targets

PURPOSE:
  Defines the interface between the domain logic and the database.
  The Store handles persistence while keeping both ledgers append-only.
  Different implementations can use SQLite (cgo or pure Go) or memory.

KEY INTERFACES:
  LedgerStore: Append-only writes and reads for both ledger kinds
  PlayerStore: Player rows and their derived total
  GoalStore:   The mutable current daily goal per player
  TxStore:     Runs a function against a Store inside one atomic unit

APPEND-ONLY CONTRACT:
  LedgerStore exposes Append and reads only. Ledger rows disappear only
  through cascade when their player or session is deleted.

ATOMIC UNITS:
  Recording a delta reads the total, clamps, appends to two ledgers and
  writes the total back. WithTx makes that whole sequence one unit so two
  concurrent deltas for the same player cannot lose an update.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (mattn/go-sqlite3 or modernc.org/sqlite)
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level ledger using Store
  - exercise/recorder.go: The WithTx caller
*/
package generic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER STORE - Append-only
// =============================================================================

// LedgerStore persists entries of both ledger kinds.
// IMPORTANT: No Update, No Delete.
type LedgerStore interface {
	// Append persists an entry and returns it with ID and CreatedAt set.
	Append(ctx context.Context, e Entry) (Entry, error)

	// Load returns all entries of a kind for a player, in insertion order.
	Load(ctx context.Context, kind LedgerKind, playerID PlayerID) ([]Entry, error)

	// LoadDay returns the entries of a kind for a player on one day, in insertion order.
	LoadDay(ctx context.Context, kind LedgerKind, playerID PlayerID, day Day) ([]Entry, error)
}

// =============================================================================
// PLAYER STORE
// =============================================================================

// PlayerStore persists players. Lookups are always session-scoped so one
// tenant can never read another tenant's player.
type PlayerStore interface {
	// CreatePlayer returns a ConflictError if the name is taken in the session.
	CreatePlayer(ctx context.Context, p Player) (Player, error)

	// GetPlayer returns a NotFoundError unless the player exists in the session.
	GetPlayer(ctx context.Context, sessionID SessionID, playerID PlayerID) (Player, error)

	// ListPlayers returns the session's players ordered by total descending.
	ListPlayers(ctx context.Context, sessionID SessionID) ([]Player, error)

	// DeletePlayer removes the player and cascades its ledger and goal rows.
	DeletePlayer(ctx context.Context, sessionID SessionID, playerID PlayerID) error

	// UpdateTotal persists a new derived total.
	UpdateTotal(ctx context.Context, playerID PlayerID, total decimal.Decimal, at time.Time) (Player, error)
}

// =============================================================================
// GOAL STORE
// =============================================================================

// GoalStore persists the mutable current daily goal.
type GoalStore interface {
	// GetGoalTarget returns nil, nil when the player has no target configured.
	GetGoalTarget(ctx context.Context, sessionID SessionID, playerID PlayerID) (*GoalTarget, error)

	// UpsertGoalTarget inserts or replaces the player's current target.
	UpsertGoalTarget(ctx context.Context, t GoalTarget) error
}

// Store is everything the ledger engine reads and writes.
type Store interface {
	LedgerStore
	PlayerStore
	GoalStore
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
