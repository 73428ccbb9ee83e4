package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/repboard/generic"
)

// =============================================================================
// LEDGER STORE
// =============================================================================

// Append adds an entry to the lifetime or daily-goal ledger.
func (s *Store) Append(ctx context.Context, e generic.Entry) (generic.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e, s.stamp())
}

// Load returns all entries of one ledger for a player, in insertion order.
func (s *Store) Load(ctx context.Context, kind generic.LedgerKind, playerID generic.PlayerID) ([]generic.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEntries(ctx, s.db, kind, "player_id = ?", int64(playerID))
}

// LoadDay returns one player's entries for a single business day.
func (s *Store) LoadDay(ctx context.Context, kind generic.LedgerKind, playerID generic.PlayerID, day generic.Day) ([]generic.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEntries(ctx, s.db, kind, "player_id = ? AND day = ?", int64(playerID), day.String())
}

func ledgerTable(kind generic.LedgerKind) (string, error) {
	switch kind {
	case generic.LedgerLifetime:
		return "ledger_entries", nil
	case generic.LedgerDailyGoal:
		return "daily_goal_entries", nil
	}
	return "", fmt.Errorf("unknown ledger kind %d", kind)
}

func appendEntry(ctx context.Context, q querier, e generic.Entry, now time.Time) (generic.Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	var (
		res sql.Result
		err error
	)
	switch e.Kind {
	case generic.LedgerLifetime:
		res, err = q.ExecContext(ctx, `
			INSERT INTO ledger_entries (session_id, player_id, amount, day, created_at)
			SELECT session_id, id, ?, ?, ? FROM players WHERE id = ? AND session_id = ?`,
			e.Amount.String(), e.Day.String(), formatTime(e.CreatedAt), int64(e.PlayerID), int64(e.SessionID),
		)
	case generic.LedgerDailyGoal:
		if e.GoalTarget == nil {
			return generic.Entry{}, &generic.ValidationError{Field: "goalTarget", Message: "daily goal entries carry a target"}
		}
		res, err = q.ExecContext(ctx, `
			INSERT INTO daily_goal_entries (session_id, player_id, amount, day, goal_target, created_at)
			SELECT session_id, id, ?, ?, ?, ? FROM players WHERE id = ? AND session_id = ?`,
			e.Amount.String(), e.Day.String(), e.GoalTarget.String(), formatTime(e.CreatedAt), int64(e.PlayerID), int64(e.SessionID),
		)
	default:
		return generic.Entry{}, fmt.Errorf("unknown ledger kind %d", e.Kind)
	}
	if err != nil {
		return generic.Entry{}, generic.WrapStore("append "+e.Kind.String()+" entry", err)
	}

	// The INSERT ... SELECT writes nothing when the player is not in the session.
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.Entry{}, generic.PlayerNotFound(e.PlayerID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return generic.Entry{}, generic.WrapStore("append "+e.Kind.String()+" entry", err)
	}
	e.ID = generic.EntryID(id)
	return e, nil
}

func loadEntries(ctx context.Context, q querier, kind generic.LedgerKind, where string, args ...any) ([]generic.Entry, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return nil, err
	}
	target := "NULL"
	if kind == generic.LedgerDailyGoal {
		target = "goal_target"
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, session_id, player_id, amount, day, `+target+`, created_at
		FROM `+table+`
		WHERE `+where+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, generic.WrapStore("load "+kind.String()+" entries", err)
	}
	defer rows.Close()

	var entries []generic.Entry
	for rows.Next() {
		e, err := scanEntry(rows, kind)
		if err != nil {
			return nil, generic.WrapStore("scan "+kind.String()+" entry", err)
		}
		entries = append(entries, e)
	}
	return entries, generic.WrapStore("load "+kind.String()+" entries", rows.Err())
}

func scanEntry(rows *sql.Rows, kind generic.LedgerKind) (generic.Entry, error) {
	var (
		e                      generic.Entry
		amount, day, createdAt string
		target                 sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.SessionID, &e.PlayerID, &amount, &day, &target, &createdAt); err != nil {
		return generic.Entry{}, err
	}
	e.Kind = kind
	var err error
	if e.Amount, err = parseDecimal(amount); err != nil {
		return generic.Entry{}, err
	}
	if e.Day, err = generic.ParseDay(day); err != nil {
		return generic.Entry{}, err
	}
	if target.Valid {
		t, err := parseDecimal(target.String)
		if err != nil {
			return generic.Entry{}, err
		}
		e.GoalTarget = &t
	}
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// =============================================================================
// PLAYER STORE
// =============================================================================

// CreatePlayer inserts a player with a zero total.
func (s *Store) CreatePlayer(ctx context.Context, p generic.Player) (generic.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPlayer(ctx, s.db, p, s.stamp())
}

// GetPlayer returns a player only if it belongs to the session.
func (s *Store) GetPlayer(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (generic.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPlayer(ctx, s.db, sessionID, playerID)
}

// ListPlayers returns the session's players, highest total first.
func (s *Store) ListPlayers(ctx context.Context, sessionID generic.SessionID) ([]generic.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPlayers(ctx, s.db, sessionID)
}

// DeletePlayer removes a player. Both ledgers and the goal target cascade.
func (s *Store) DeletePlayer(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePlayer(ctx, s.db, sessionID, playerID)
}

// UpdateTotal overwrites the derived running total.
func (s *Store) UpdateTotal(ctx context.Context, playerID generic.PlayerID, total decimal.Decimal, at time.Time) (generic.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTotal(ctx, s.db, playerID, total, at)
}

const playerColumns = `id, session_id, name, total, created_at, updated_at`

func createPlayer(ctx context.Context, q querier, p generic.Player, now time.Time) (generic.Player, error) {
	p.Total = decimal.Zero
	p.CreatedAt, p.UpdatedAt = now, now
	res, err := q.ExecContext(ctx, `
		INSERT INTO players (session_id, name, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		int64(p.SessionID), p.Name, p.Total.String(), formatTime(now), formatTime(now),
	)
	switch {
	case isUniqueConstraintError(err):
		return generic.Player{}, &generic.ConflictError{Resource: "player", Name: p.Name}
	case isForeignKeyError(err):
		return generic.Player{}, generic.SessionNotFound(p.SessionID)
	case err != nil:
		return generic.Player{}, generic.WrapStore("create player", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return generic.Player{}, generic.WrapStore("create player", err)
	}
	p.ID = generic.PlayerID(id)
	return p, nil
}

func getPlayer(ctx context.Context, q querier, sessionID generic.SessionID, playerID generic.PlayerID) (generic.Player, error) {
	row := q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ? AND session_id = ?`, int64(playerID), int64(sessionID))
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Player{}, generic.PlayerNotFound(playerID)
	}
	return p, generic.WrapStore("get player", err)
}

func listPlayers(ctx context.Context, q querier, sessionID generic.SessionID) ([]generic.Player, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+playerColumns+` FROM players WHERE session_id = ? ORDER BY id`, int64(sessionID))
	if err != nil {
		return nil, generic.WrapStore("list players", err)
	}
	defer rows.Close()

	var players []generic.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, generic.WrapStore("scan player", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, generic.WrapStore("list players", err)
	}

	// Totals are decimal text, so order in Go rather than with CAST.
	sort.SliceStable(players, func(i, j int) bool {
		if c := players[i].Total.Cmp(players[j].Total); c != 0 {
			return c > 0
		}
		return players[i].Name < players[j].Name
	})
	return players, nil
}

func deletePlayer(ctx context.Context, q querier, sessionID generic.SessionID, playerID generic.PlayerID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM players WHERE id = ? AND session_id = ?`, int64(playerID), int64(sessionID))
	if err != nil {
		return generic.WrapStore("delete player", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.PlayerNotFound(playerID)
	}
	return nil
}

func updateTotal(ctx context.Context, q querier, playerID generic.PlayerID, total decimal.Decimal, at time.Time) (generic.Player, error) {
	res, err := q.ExecContext(ctx, `UPDATE players SET total = ?, updated_at = ? WHERE id = ?`,
		total.String(), formatTime(at), int64(playerID))
	if err != nil {
		return generic.Player{}, generic.WrapStore("update total", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.Player{}, generic.PlayerNotFound(playerID)
	}
	p, err := scanPlayer(q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, int64(playerID)))
	return p, generic.WrapStore("update total", err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (generic.Player, error) {
	var (
		p                           generic.Player
		total, createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.SessionID, &p.Name, &total, &createdAt, &updatedAt); err != nil {
		return generic.Player{}, err
	}
	var err error
	if p.Total, err = parseDecimal(total); err != nil {
		return generic.Player{}, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// GOAL STORE
// =============================================================================

// GetGoalTarget returns nil, nil when the player never set a goal.
func (s *Store) GetGoalTarget(ctx context.Context, sessionID generic.SessionID, playerID generic.PlayerID) (*generic.GoalTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGoalTarget(ctx, s.db, sessionID, playerID)
}

// UpsertGoalTarget sets the player's current goal.
func (s *Store) UpsertGoalTarget(ctx context.Context, t generic.GoalTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertGoalTarget(ctx, s.db, t, s.stamp())
}

func getGoalTarget(ctx context.Context, q querier, sessionID generic.SessionID, playerID generic.PlayerID) (*generic.GoalTarget, error) {
	var (
		t                 generic.GoalTarget
		target, updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT session_id, player_id, target, updated_at
		FROM daily_goal_targets WHERE session_id = ? AND player_id = ?`,
		int64(sessionID), int64(playerID),
	).Scan(&t.SessionID, &t.PlayerID, &target, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, generic.WrapStore("get goal target", err)
	}
	if t.Target, err = parseDecimal(target); err != nil {
		return nil, generic.WrapStore("get goal target", err)
	}
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func upsertGoalTarget(ctx context.Context, q querier, t generic.GoalTarget, now time.Time) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO daily_goal_targets (player_id, session_id, target, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET target = excluded.target, updated_at = excluded.updated_at`,
		int64(t.PlayerID), int64(t.SessionID), t.Target.String(), formatTime(t.UpdatedAt),
	)
	if isForeignKeyError(err) {
		return generic.PlayerNotFound(t.PlayerID)
	}
	return generic.WrapStore("upsert goal target", err)
}
