/*
registry.go - Session registry

PURPOSE:
  Owns the lifecycle of sessions (tenants): create, list, activate,
  resolve the active one, delete and archive. Also holds the global admin
  credential, share codes, the competition end and tenant settings.

CREDENTIALS:
  - Session passwords: bcrypt, 4 to 72 bytes, checked on activate
  - Admin password: bcrypt hash in settings with a NULL session, gates
    delete and archive (missing → 401, wrong → 403)

DELETE ORDER:
  admin credential → session exists → not the caller's active session

SEE ALSO:
  - cookie.go: Signed active-session cookie
  - archive/engine.go: Snapshots taken by Archive
  - store/sqlite/sessions.go: Persistence
*/
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/warp/repboard/archive"
	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/logging"
	"github.com/warp/repboard/metrics"
)

const shortCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// competitionLayouts are the accepted naive local datetime forms.
var competitionLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// Archiver snapshots a session. *archive.Engine implements it.
type Archiver interface {
	Archive(ctx context.Context, sessionID generic.SessionID) ([]archive.Snapshot, error)
	History(ctx context.Context, sessionID generic.SessionID) ([]archive.Snapshot, error)
}

// CreateInput is the request to open a new session.
type CreateInput struct {
	Name     string
	Password string
	Kind     string
}

// =============================================================================
// REGISTRY
// =============================================================================

type Registry struct {
	store    Store
	archiver Archiver
	dates    *generic.DateResolver
	cost     int
	now      func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithBcryptCost sets the work factor for new hashes.
func WithBcryptCost(cost int) Option {
	return func(r *Registry) { r.cost = cost }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(store Store, archiver Archiver, dates *generic.DateResolver, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		archiver: archiver,
		dates:    dates,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create opens a session. Names are globally unique.
func (r *Registry) Create(ctx context.Context, in CreateInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, &generic.ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) > exercise.MaxNameLength {
		return Session{}, &generic.ValidationError{Field: "name", Message: "name is too long"}
	}
	if len(in.Password) < MinPasswordLength {
		return Session{}, &generic.ValidationError{Field: "password", Message: "password must be at least 4 characters"}
	}
	if len(in.Password) > MaxPasswordBytes {
		return Session{}, &generic.ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
	}
	kind, err := exercise.ParseKind(in.Kind)
	if err != nil {
		return Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.cost)
	if err != nil {
		return Session{}, err
	}

	now := r.now().UTC()
	s, err := r.store.CreateSession(ctx, Session{
		Name:         name,
		PasswordHash: string(hash),
		Kind:         kind,
		CreatedOn:    r.dates.Today(),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Session{}, err
	}
	logging.Ctx(ctx).Info().Int64("session_id", int64(s.ID)).Str("kind", string(kind)).Msg("session created")
	return s, nil
}

func (r *Registry) List(ctx context.Context) ([]Session, error) {
	return r.store.ListSessions(ctx)
}

func (r *Registry) Get(ctx context.Context, id generic.SessionID) (Session, error) {
	return r.store.GetSession(ctx, id)
}

// Activate verifies the session password. It never mutates state, so
// activating twice with the right password yields the same result.
func (r *Registry) Activate(ctx context.Context, id generic.SessionID, password string) (Session, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) != nil {
		metrics.RecordAuthFailure("session")
		return Session{}, &generic.AuthError{Reason: "invalid password"}
	}
	return s, nil
}

// ResolveActive turns a cookie's session id into a session. A missing id or
// a session that no longer exists both yield nil, nil.
func (r *Registry) ResolveActive(ctx context.Context, id *generic.SessionID) (*Session, error) {
	if id == nil {
		return nil, nil
	}
	s, err := r.store.GetSession(ctx, *id)
	if generic.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes a session and all its tenant rows. activeID is the
// caller's own active session, if any; deleting it is refused.
func (r *Registry) Delete(ctx context.Context, id generic.SessionID, adminPassword string, activeID *generic.SessionID) error {
	if err := r.VerifyAdmin(ctx, adminPassword); err != nil {
		return err
	}
	if _, err := r.store.GetSession(ctx, id); err != nil {
		return err
	}
	if activeID != nil && *activeID == id {
		return &generic.ValidationError{Field: "id", Message: "cannot delete the active session, switch to another session first"}
	}
	if err := r.store.DeleteSession(ctx, id); err != nil {
		return err
	}
	logging.Ctx(ctx).Warn().Int64("session_id", int64(id)).Msg("session deleted")
	return nil
}

// Archive snapshots every non-empty tenant table of the session.
func (r *Registry) Archive(ctx context.Context, id generic.SessionID, adminPassword string) ([]archive.Snapshot, error) {
	if err := r.VerifyAdmin(ctx, adminPassword); err != nil {
		return nil, err
	}
	if _, err := r.store.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return r.archiver.Archive(ctx, id)
}

// History lists a session's archive snapshots.
func (r *Registry) History(ctx context.Context, id generic.SessionID) ([]archive.Snapshot, error) {
	if _, err := r.store.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return r.archiver.History(ctx, id)
}

// =============================================================================
// ADMIN CREDENTIAL
// =============================================================================

// VerifyAdmin checks the global admin password. An empty password or an
// unconfigured admin credential is 401; a wrong password is 403.
func (r *Registry) VerifyAdmin(ctx context.Context, password string) error {
	if password == "" {
		return &generic.AuthError{Reason: "admin password required"}
	}
	setting, err := r.store.GetSetting(ctx, nil, generic.SettingAdminPassword)
	if err != nil {
		return err
	}
	if setting == nil {
		return &generic.AuthError{Reason: "admin password is not configured"}
	}
	if bcrypt.CompareHashAndPassword([]byte(setting.Value), []byte(password)) != nil {
		metrics.RecordAuthFailure("admin")
		return &generic.AuthError{Reason: "invalid admin password", Forbidden: true}
	}
	return nil
}

// BootstrapAdminPassword stores the hash of plain when no admin credential
// exists yet. It reports whether it wrote one.
func (r *Registry) BootstrapAdminPassword(ctx context.Context, plain string) (bool, error) {
	if plain == "" {
		return false, nil
	}
	existing, err := r.store.GetSetting(ctx, nil, generic.SettingAdminPassword)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), r.cost)
	if err != nil {
		return false, err
	}
	err = r.store.PutSetting(ctx, generic.Setting{
		Key:       generic.SettingAdminPassword,
		Value:     string(hash),
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// SHARE CODES
// =============================================================================

// ShareCode returns the session's short code, generating one on first use.
func (r *Registry) ShareCode(ctx context.Context, id generic.SessionID) (string, error) {
	s, err := r.store.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	if s.ShortCode != "" {
		return s.ShortCode, nil
	}

	const attempts = 5
	for i := 0; i < attempts; i++ {
		code, err := newShortCode()
		if err != nil {
			return "", err
		}
		err = r.store.SetShortCode(ctx, id, code)
		if errors.Is(err, generic.ErrConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", &generic.StoreError{Op: "generate short code", Err: errors.New("no free code after retries")}
}

// FindByShortCode resolves a share code to its session.
func (r *Registry) FindByShortCode(ctx context.Context, code string) (Session, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != ShortCodeLength {
		return Session{}, &generic.NotFoundError{Resource: "session", ID: code}
	}
	return r.store.FindSessionByShortCode(ctx, code)
}

func newShortCode() (string, error) {
	b := make([]byte, ShortCodeLength)
	limit := big.NewInt(int64(len(shortCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// =============================================================================
// COMPETITION WINDOW & SETTINGS
// =============================================================================

// SetCompetitionEnd stores endsAt verbatim. It is a naive local datetime and
// is never converted between zones.
func (r *Registry) SetCompetitionEnd(ctx context.Context, id generic.SessionID, endsAt string) (generic.CompetitionWindow, error) {
	endsAt = strings.TrimSpace(endsAt)
	if !validCompetitionEnd(endsAt) {
		return generic.CompetitionWindow{}, &generic.ValidationError{Field: "endDate", Message: "end date must be a local datetime like 2025-12-31T23:59"}
	}
	w := generic.CompetitionWindow{SessionID: id, EndsAt: endsAt, UpdatedAt: r.now().UTC()}
	if err := r.store.PutCompetitionWindow(ctx, w); err != nil {
		return generic.CompetitionWindow{}, err
	}
	return w, nil
}

// CompetitionEnd returns a NotFoundError when no end is configured.
func (r *Registry) CompetitionEnd(ctx context.Context, id generic.SessionID) (generic.CompetitionWindow, error) {
	w, err := r.store.GetCompetitionWindow(ctx, id)
	if err != nil {
		return generic.CompetitionWindow{}, err
	}
	if w == nil {
		return generic.CompetitionWindow{}, &generic.NotFoundError{Resource: "competition end date", ID: id.String()}
	}
	return *w, nil
}

func validCompetitionEnd(s string) bool {
	for _, layout := range competitionLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Setting reads a tenant-scoped setting.
func (r *Registry) Setting(ctx context.Context, id generic.SessionID, key string) (generic.Setting, error) {
	if err := validSettingKey(key); err != nil {
		return generic.Setting{}, err
	}
	s, err := r.store.GetSetting(ctx, &id, key)
	if err != nil {
		return generic.Setting{}, err
	}
	if s == nil {
		return generic.Setting{}, &generic.NotFoundError{Resource: "setting", ID: key}
	}
	return *s, nil
}

// PutSetting upserts a tenant-scoped setting. The admin key is global only.
func (r *Registry) PutSetting(ctx context.Context, id generic.SessionID, key, value string) (generic.Setting, error) {
	if err := validSettingKey(key); err != nil {
		return generic.Setting{}, err
	}
	s := generic.Setting{SessionID: &id, Key: key, Value: value, UpdatedAt: r.now().UTC()}
	if err := r.store.PutSetting(ctx, s); err != nil {
		return generic.Setting{}, err
	}
	return s, nil
}

func validSettingKey(key string) error {
	switch {
	case key == "":
		return &generic.ValidationError{Field: "key", Message: "key is required"}
	case len(key) > 64:
		return &generic.ValidationError{Field: "key", Message: "key is too long"}
	case key == generic.SettingAdminPassword:
		return &generic.ValidationError{Field: "key", Message: "reserved key"}
	}
	return nil
}
