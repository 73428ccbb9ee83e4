/*
Package session implements the session registry: tenant competitions,
their passwords, per-client activation cookies and admin-gated actions.

PURPOSE:
  A session is an isolated competition. Every player, ledger row, goal,
  setting and competition window belongs to exactly one session.

ACTIVE SESSION IS PER CLIENT:
  There is no server-side "current session". Activating a session issues
  a signed cookie naming its id to that one client. Two browsers may hold
  two different active sessions at the same time. Handlers receive the id
  decoded once per request, never a process-global.

ADMIN CREDENTIAL:
  Deleting and archiving are gated by one global admin password, stored as
  a bcrypt hash in settings under the reserved key "adminPassword" with no
  session. It is never a session's own password.

SEE ALSO:
  - registry.go: Operations
  - cookie.go: Signed cookie issue/resolve
  - archive/engine.go: What Archive writes
*/
package session

import (
	"context"
	"time"

	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
)

// MinPasswordLength applies to session passwords.
const MinPasswordLength = 4

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// ShortCodeLength is the length of a share code.
const ShortCodeLength = 8

// Session is a tenant.
type Session struct {
	ID           generic.SessionID
	Name         string
	PasswordHash string
	Kind         exercise.Kind
	CreatedOn    generic.Day
	ShortCode    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists sessions and their tenant-scoped key/value rows.
type Store interface {
	// CreateSession returns a ConflictError when the name is taken.
	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSession(ctx context.Context, id generic.SessionID) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)

	// DeleteSession cascades every tenant table of the session.
	DeleteSession(ctx context.Context, id generic.SessionID) error

	// SetShortCode returns a ConflictError when another session holds the code.
	SetShortCode(ctx context.Context, id generic.SessionID, code string) error
	FindSessionByShortCode(ctx context.Context, code string) (Session, error)

	// GetSetting returns nil, nil when the key is unset. A nil sessionID
	// addresses the global scope.
	GetSetting(ctx context.Context, sessionID *generic.SessionID, key string) (*generic.Setting, error)
	PutSetting(ctx context.Context, s generic.Setting) error

	// GetCompetitionWindow returns nil, nil when no end is configured.
	GetCompetitionWindow(ctx context.Context, sessionID generic.SessionID) (*generic.CompetitionWindow, error)
	PutCompetitionWindow(ctx context.Context, w generic.CompetitionWindow) error
}
