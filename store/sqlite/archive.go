/*
archive.go - Archive source and sink

PURPOSE:
  Reads a session's tenant tables for the archival engine and stores the
  resulting snapshots. Snapshot rows carry no foreign key, so they outlive
  a deleted session.

SEE ALSO:
  - archive/engine.go: Engine
  - sqlite.go: Schema
*/
package sqlite

import (
	"context"
	"database/sql"

	"github.com/warp/repboard/archive"
	"github.com/warp/repboard/generic"
)

// =============================================================================
// ARCHIVE SOURCE
// =============================================================================

// SessionPlayers returns every player of the session.
func (s *Store) SessionPlayers(ctx context.Context, sessionID generic.SessionID) ([]generic.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPlayers(ctx, s.db, sessionID)
}

// SessionEntries returns one ledger of the whole session in insertion order.
func (s *Store) SessionEntries(ctx context.Context, sessionID generic.SessionID, kind generic.LedgerKind) ([]generic.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEntries(ctx, s.db, kind, "session_id = ?", int64(sessionID))
}

// SessionGoalTargets returns the current goal of every player that set one.
func (s *Store) SessionGoalTargets(ctx context.Context, sessionID generic.SessionID) ([]generic.GoalTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, player_id, target, updated_at
		FROM daily_goal_targets WHERE session_id = ? ORDER BY player_id`, int64(sessionID))
	if err != nil {
		return nil, generic.WrapStore("list goal targets", err)
	}
	defer rows.Close()

	var targets []generic.GoalTarget
	for rows.Next() {
		var (
			t                 generic.GoalTarget
			target, updatedAt string
		)
		if err := rows.Scan(&t.SessionID, &t.PlayerID, &target, &updatedAt); err != nil {
			return nil, generic.WrapStore("scan goal target", err)
		}
		if t.Target, err = parseDecimal(target); err != nil {
			return nil, generic.WrapStore("scan goal target", err)
		}
		t.UpdatedAt = parseTime(updatedAt)
		targets = append(targets, t)
	}
	return targets, generic.WrapStore("list goal targets", rows.Err())
}

// SessionSettings returns the session-scoped settings. The global admin key
// has no session and is never included.
func (s *Store) SessionSettings(ctx context.Context, sessionID generic.SessionID) ([]generic.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, key, value, updated_at
		FROM settings WHERE session_id = ? ORDER BY id`, int64(sessionID))
	if err != nil {
		return nil, generic.WrapStore("list settings", err)
	}
	defer rows.Close()

	var settings []generic.Setting
	for rows.Next() {
		var (
			scope     int64
			setting   generic.Setting
			updatedAt string
		)
		if err := rows.Scan(&scope, &setting.Key, &setting.Value, &updatedAt); err != nil {
			return nil, generic.WrapStore("scan setting", err)
		}
		id := generic.SessionID(scope)
		setting.SessionID = &id
		setting.UpdatedAt = parseTime(updatedAt)
		settings = append(settings, setting)
	}
	return settings, generic.WrapStore("list settings", rows.Err())
}

// SessionCompetitionWindows returns zero or one window.
func (s *Store) SessionCompetitionWindows(ctx context.Context, sessionID generic.SessionID) ([]generic.CompetitionWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, ends_at, updated_at
		FROM competition_windows WHERE session_id = ?`, int64(sessionID))
	if err != nil {
		return nil, generic.WrapStore("list competition windows", err)
	}
	defer rows.Close()

	var windows []generic.CompetitionWindow
	for rows.Next() {
		var (
			w         generic.CompetitionWindow
			updatedAt string
		)
		if err := rows.Scan(&w.SessionID, &w.EndsAt, &updatedAt); err != nil {
			return nil, generic.WrapStore("scan competition window", err)
		}
		w.UpdatedAt = parseTime(updatedAt)
		windows = append(windows, w)
	}
	return windows, generic.WrapStore("list competition windows", rows.Err())
}

// =============================================================================
// ARCHIVE SINK
// =============================================================================

// SaveSnapshot writes one snapshot. Snapshots are never updated.
func (s *Store) SaveSnapshot(ctx context.Context, r archive.Record) (archive.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.stamp()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_snapshots (session_id, table_name, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		int64(r.SessionID), string(r.Table), string(r.Data), formatTime(r.CreatedAt),
	)
	if err != nil {
		return archive.Record{}, generic.WrapStore("save snapshot", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return archive.Record{}, generic.WrapStore("save snapshot", err)
	}
	r.ID = id
	return r, nil
}

// ListSnapshots returns a session's snapshots, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, sessionID generic.SessionID) ([]archive.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, table_name, payload, created_at
		FROM archive_snapshots WHERE session_id = ? ORDER BY id`, int64(sessionID))
	if err != nil {
		return nil, generic.WrapStore("list snapshots", err)
	}
	defer rows.Close()

	var records []archive.Record
	for rows.Next() {
		var (
			r                archive.Record
			table, createdAt string
			payload          sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &table, &payload, &createdAt); err != nil {
			return nil, generic.WrapStore("scan snapshot", err)
		}
		r.Table = archive.Table(table)
		r.Data = []byte(payload.String)
		r.CreatedAt = parseTime(createdAt)
		records = append(records, r)
	}
	return records, generic.WrapStore("list snapshots", rows.Err())
}
