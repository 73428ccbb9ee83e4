/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of the service on one SQLite
  database. Two drivers are supported and chosen at open time:
    "sqlite3" → github.com/mattn/go-sqlite3 (cgo)
    "sqlite"  → modernc.org/sqlite (pure Go, no cgo toolchain needed)

INTERFACES IMPLEMENTED:
  generic.TxStore: Ledgers, players, goal targets, WithTx
  session.Store:   Sessions, settings, competition windows
  archive.Source:  Session-scoped reads of every tenant table
  archive.Sink:    Write-once archive snapshots

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on ledger_entries or daily_goal_entries
  - No DELETE statements on them either; rows go only via ON DELETE CASCADE
    when their player or session is deleted

KEY TABLES:
  sessions:            Global tenant list
  players:             Per-session players with derived total
  ledger_entries:      Lifetime ledger
  daily_goal_targets:  Mutable current goal, one row per player
  daily_goal_entries:  Shadow ledger with per-row goal target snapshot
  settings:            Key/value; session_id NULL only for the admin key
  competition_windows: Naive local end datetime per session
  archive_snapshots:   Write-once JSON payloads; kept after session delete

DECIMALS:
  Amounts, totals and targets are stored as canonical decimal strings and
  summed in Go with shopspring/decimal. SQLite REAL would lose quarters.

CONCURRENCY:
  One connection, guarded by sync.RWMutex. WithTx holds the write lock for
  the whole transaction, so RecordDelta's read-modify-write is serialized.
  A single connection also keeps ":memory:" databases coherent.

USAGE:
  store, err := sqlite.Open(sqlite.Config{Driver: "sqlite", Path: "./data/repboard.db"})
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Ledger interfaces
  - session/types.go: session.Store
  - archive/engine.go: Source and Sink
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/warp/repboard/generic"
)

// Driver names accepted by Open.
const (
	DriverCgo    = "sqlite3"
	DriverPureGo = "sqlite"
)

// Config selects the driver and database file.
type Config struct {
	Driver string `koanf:"driver" validate:"omitempty,oneof=sqlite3 sqlite"`
	Path   string `koanf:"path" validate:"required"`
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens path with the cgo driver. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return Open(Config{Driver: DriverCgo, Path: dbPath})
}

// Open opens and migrates the database described by cfg.
func Open(cfg Config) (*Store, error) {
	dsn, driver, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func dataSource(cfg Config) (dsn, driver string, err error) {
	if cfg.Path == "" {
		return "", "", fmt.Errorf("sqlite: database path is required")
	}
	switch cfg.Driver {
	case "", DriverCgo:
		return cfg.Path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", DriverCgo, nil
	case DriverPureGo:
		return cfg.Path + "?_pragma=foreign_keys(on)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", DriverPureGo, nil
	}
	return "", "", fmt.Errorf("sqlite: unknown driver %q", cfg.Driver)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.PingContext(ctx)
}

// SetClock overrides time.Now for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) stamp() time.Time { return s.now().UTC() }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'counted',
		created_on TEXT NOT NULL,
		short_code TEXT UNIQUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		total TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (session_id, name)
	);

	-- Lifetime ledger (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		day TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_player_day
		ON ledger_entries(player_id, day);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_session
		ON ledger_entries(session_id);

	CREATE TABLE IF NOT EXISTS daily_goal_targets (
		player_id INTEGER PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		target TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Shadow ledger (append-only); goal_target is the target at insert time
	CREATE TABLE IF NOT EXISTS daily_goal_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		day TEXT NOT NULL,
		goal_target TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_daily_goal_entries_player_day
		ON daily_goal_entries(player_id, day);
	CREATE INDEX IF NOT EXISTS idx_daily_goal_entries_session
		ON daily_goal_entries(session_id);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER REFERENCES sessions(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_settings_scope_key
		ON settings(COALESCE(session_id, 0), key);

	CREATE TABLE IF NOT EXISTS competition_windows (
		session_id INTEGER PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
		ends_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- No foreign key: snapshots outlive the session they describe
	CREATE TABLE IF NOT EXISTS archive_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		table_name TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archive_snapshots_session
		ON archive_snapshots(session_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes fn within a database transaction.
// All calls on the provided store go through the same *sql.Tx.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.WrapStore("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx, now: s.stamp()}); err != nil {
		return err
	}
	return generic.WrapStore("commit transaction", sqlTx.Commit())
}

// txStore runs generic.Store calls inside a transaction. The parent's write
// lock is already held, so it never locks.
type txStore struct {
	q   querier
	now time.Time
}

func (ts *txStore) Append(ctx context.Context, e generic.Entry) (generic.Entry, error) {
	return appendEntry(ctx, ts.q, e, ts.now)
}

func (ts *txStore) Load(ctx context.Context, kind generic.LedgerKind, playerID generic.PlayerID) ([]generic.Entry, error) {
	return loadEntries(ctx, ts.q, kind, "player_id = ?", int64(playerID))
}

func (ts *txStore) LoadDay(ctx context.Context, kind generic.LedgerKind, playerID generic.PlayerID, day generic.Day) ([]generic.Entry, error) {
	return loadEntries(ctx, ts.q, kind, "player_id = ? AND day = ?", int64(playerID), day.String())
}

func (ts *txStore) CreatePlayer(ctx context.Context, p generic.Player) (generic.Player, error) {
	return createPlayer(ctx, ts.q, p, ts.now)
}

func (ts *txStore) GetPlayer(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (generic.Player, error) {
	return getPlayer(ctx, ts.q, sessionID, playerID)
}

func (ts *txStore) ListPlayers(ctx context.Context, sessionID generic.SessionID) ([]generic.Player, error) {
	return listPlayers(ctx, ts.q, sessionID)
}

func (ts *txStore) DeletePlayer(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) error {
	return deletePlayer(ctx, ts.q, sessionID, playerID)
}

func (ts *txStore) UpdateTotal(ctx context.Context, playerID generic.PlayerID, total decimal.Decimal, at time.Time) (generic.Player, error) {
	return updateTotal(ctx, ts.q, playerID, total, at)
}

func (ts *txStore) GetGoalTarget(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (*generic.GoalTarget, error) {
	return getGoalTarget(ctx, ts.q, sessionID, playerID)
}

func (ts *txStore) UpsertGoalTarget(ctx context.Context, t generic.GoalTarget) error {
	return upsertGoalTarget(ctx, ts.q, t, ts.now)
}

// =============================================================================
// HELPERS
// =============================================================================

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", s, err)
	}
	return d, nil
}

func nullInt64(id *generic.SessionID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
