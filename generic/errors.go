/*
errors.go - Centralized error types for the ledger service

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these; the API maps them to HTTP statuses in
  exactly one place.

ERROR CATEGORIES:
  1. Validation errors - Malformed amount, date, target, name (400)
  2. Not found errors  - Unknown player or session (404)
  3. Auth errors       - Bad session password, missing active session (401),
                         bad admin password (403)
  4. Conflict errors   - Duplicate session or player name (409)
  5. Store errors      - Underlying persistence failure (500)

USAGE:
  if errors.Is(err, generic.ErrNotFound) {
      // 404
  }

  var verr *generic.ValidationError
  if errors.As(err, &verr) {
      fmt.Println(verr.Field)
  }

SEE ALSO:
  - api/handlers.go: writeDomainError maps these to statuses
  - store/sqlite/sqlite.go: wraps driver failures in StoreError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input. No mutation was attempted.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced player or session doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned for a wrong session password or a missing
	// active session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for a wrong admin credential.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a unique name is already taken.
	ErrConflict = errors.New("conflict")

	// ErrStore is returned when the persistence layer fails.
	ErrStore = errors.New("store failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string // "player", "session"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Resource string
	Name     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with name %q already exists", e.Resource, e.Name)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// AuthError is a failed credential check. Forbidden selects 403 over 401.
type AuthError struct {
	Reason    string
	Forbidden bool
}

func (e *AuthError) Error() string { return e.Reason }

func (e *AuthError) Unwrap() error {
	if e.Forbidden {
		return ErrForbidden
	}
	return ErrUnauthorized
}

// StoreError wraps a persistence failure with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// WrapStore wraps err as a StoreError unless it already carries a domain
// meaning (validation, not found, conflict, auth).
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or credentials.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// PlayerNotFound is a shorthand for the most common lookup failure.
func PlayerNotFound(id PlayerID) error {
	return &NotFoundError{Resource: "player", ID: id.String()}
}

// SessionNotFound is a shorthand for a missing session.
func SessionNotFound(id SessionID) error {
	return &NotFoundError{Resource: "session", ID: id.String()}
}
