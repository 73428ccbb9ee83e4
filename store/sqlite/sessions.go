/*
sessions.go - Sessions, settings and competition windows

PURPOSE:
  Implements session.Store: the global sessions table, the settings table
  (tenant rows plus the global admin credential with a NULL session) and
  one competition window per session.

SETTINGS UPSERT:
  The unique index is on (COALESCE(session_id, 0), key), which ON CONFLICT
  cannot target, so PutSetting updates first and inserts when nothing
  matched.

SEE ALSO:
  - sqlite.go: Schema and transactions
  - session/registry.go: Caller
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/session"
)

// =============================================================================
// SESSION STORE
// =============================================================================

const sessionColumns = `id, name, password_hash, kind, created_on, COALESCE(short_code, ''), created_at, updated_at`

// CreateSession inserts a session. Names are globally unique.
func (s *Store) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (name, password_hash, kind, created_on, short_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.Name, sess.PasswordHash, string(sess.Kind), sess.CreatedOn.String(),
		nullString(sess.ShortCode), formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return session.Session{}, &generic.ConflictError{Resource: "session", Name: sess.Name}
	}
	if err != nil {
		return session.Session{}, generic.WrapStore("create session", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return session.Session{}, generic.WrapStore("create session", err)
	}
	sess.ID = generic.SessionID(id)
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id generic.SessionID) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, generic.SessionNotFound(id)
	}
	return sess, generic.WrapStore("get session", err)
}

// ListSessions returns every session, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY id`)
	if err != nil {
		return nil, generic.WrapStore("list sessions", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, generic.WrapStore("scan session", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, generic.WrapStore("list sessions", rows.Err())
}

// DeleteSession removes a session. Every tenant table cascades; archive
// snapshots are kept.
func (s *Store) DeleteSession(ctx context.Context, id generic.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, int64(id))
	if err != nil {
		return generic.WrapStore("delete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.SessionNotFound(id)
	}
	return nil
}

// SetShortCode assigns a share code. Codes are unique across sessions.
func (s *Store) SetShortCode(ctx context.Context, id generic.SessionID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET short_code = ?, updated_at = ? WHERE id = ?`,
		code, formatTime(s.stamp()), int64(id))
	if isUniqueConstraintError(err) {
		return &generic.ConflictError{Resource: "short code", Name: code}
	}
	if err != nil {
		return generic.WrapStore("set short code", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.SessionNotFound(id)
	}
	return nil
}

// FindSessionByShortCode resolves a share code.
func (s *Store) FindSessionByShortCode(ctx context.Context, code string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE short_code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, &generic.NotFoundError{Resource: "session", ID: code}
	}
	return sess, generic.WrapStore("find session by short code", err)
}

func scanSession(row scanner) (session.Session, error) {
	var (
		sess                 session.Session
		kind, createdOn      string
		createdAt, updatedAt string
	)
	err := row.Scan(&sess.ID, &sess.Name, &sess.PasswordHash, &kind, &createdOn, &sess.ShortCode, &createdAt, &updatedAt)
	if err != nil {
		return session.Session{}, err
	}
	sess.Kind = exercise.Kind(kind)
	if sess.CreatedOn, err = generic.ParseDay(createdOn); err != nil {
		return session.Session{}, err
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return sess, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSetting returns nil, nil when the key is unset in that scope.
func (s *Store) GetSetting(ctx context.Context, sessionID *generic.SessionID, key string) (*generic.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		scope     sql.NullInt64
		setting   generic.Setting
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, key, value, updated_at FROM settings
		WHERE session_id IS ? AND key = ?`,
		nullInt64(sessionID), key,
	).Scan(&scope, &setting.Key, &setting.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, generic.WrapStore("get setting", err)
	}
	if scope.Valid {
		id := generic.SessionID(scope.Int64)
		setting.SessionID = &id
	}
	setting.UpdatedAt = parseTime(updatedAt)
	return &setting, nil
}

// PutSetting creates or replaces a key in its scope.
func (s *Store) PutSetting(ctx context.Context, setting generic.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if setting.UpdatedAt.IsZero() {
		setting.UpdatedAt = s.stamp()
	}
	scope := nullInt64(setting.SessionID)

	// The unique index is on an expression, which ON CONFLICT cannot target
	// portably, so update first and insert when nothing matched.
	res, err := s.db.ExecContext(ctx, `
		UPDATE settings SET value = ?, updated_at = ?
		WHERE session_id IS ? AND key = ?`,
		setting.Value, formatTime(setting.UpdatedAt), scope, setting.Key,
	)
	if err != nil {
		return generic.WrapStore("put setting", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)`,
		scope, setting.Key, setting.Value, formatTime(setting.UpdatedAt),
	)
	if isForeignKeyError(err) && setting.SessionID != nil {
		return generic.SessionNotFound(*setting.SessionID)
	}
	return generic.WrapStore("put setting", err)
}

// =============================================================================
// COMPETITION WINDOWS
// =============================================================================

// GetCompetitionWindow returns nil, nil when no end is configured.
func (s *Store) GetCompetitionWindow(ctx context.Context, sessionID generic.SessionID) (*generic.CompetitionWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		w         generic.CompetitionWindow
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, ends_at, updated_at FROM competition_windows WHERE session_id = ?`,
		int64(sessionID),
	).Scan(&w.SessionID, &w.EndsAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, generic.WrapStore("get competition window", err)
	}
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

// PutCompetitionWindow stores EndsAt verbatim.
func (s *Store) PutCompetitionWindow(ctx context.Context, w generic.CompetitionWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = s.stamp()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO competition_windows (session_id, ends_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET ends_at = excluded.ends_at, updated_at = excluded.updated_at`,
		int64(w.SessionID), w.EndsAt, formatTime(w.UpdatedAt),
	)
	if isForeignKeyError(err) {
		return generic.SessionNotFound(w.SessionID)
	}
	return generic.WrapStore("put competition window", err)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
