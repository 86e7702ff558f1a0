package store

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/remotedev/rdv/internal/models"
)

// RecoverableError is an alias for models.RecoverableError, retained for
// backward compatibility with callers that reference store.RecoverableError.
type RecoverableError = models.RecoverableError

// ErrNotFound is the sentinel behind NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError is returned when an addressed-by-id lookup fails.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}
func (e *NotFoundError) ErrorCode() string { return "NOT_FOUND" }
func (e *NotFoundError) Context() map[string]string {
	return map[string]string{"entity": e.Entity, "id": e.ID}
}
func (e *NotFoundError) SuggestedAction() string {
	return fmt.Sprintf("verify the %s id and retry", e.Entity)
}
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ErrInvalidToken is the sentinel behind InvalidTokenError.
var ErrInvalidToken = errors.New("invalid token")

// InvalidTokenError is returned when a credential is malformed or unknown.
type InvalidTokenError struct {
	Reason string
}

func (e *InvalidTokenError) Error() string { return "invalid token: " + e.Reason }
func (e *InvalidTokenError) ErrorCode() string { return "INVALID_TOKEN" }
func (e *InvalidTokenError) Context() map[string]string {
	return map[string]string{"reason": e.Reason}
}
func (e *InvalidTokenError) SuggestedAction() string {
	return "issue a new token and update the caller's credentials"
}
func (e *InvalidTokenError) Is(target error) bool { return target == ErrInvalidToken }

// ErrAccessDenied is the sentinel behind AccessDeniedError.
var ErrAccessDenied = errors.New("access denied")

// AccessDeniedError is returned when a credential is valid but its scope
// does not cover the requested entity.
type AccessDeniedError struct {
	Entity string
	ID     string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %s %s", e.Entity, e.ID)
}
func (e *AccessDeniedError) ErrorCode() string { return "ACCESS_DENIED" }
func (e *AccessDeniedError) Context() map[string]string {
	return map[string]string{"entity": e.Entity, "id": e.ID}
}
func (e *AccessDeniedError) SuggestedAction() string {
	return "confirm the caller owns this resource"
}
func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }

// ErrInvalidArgument is the sentinel behind InvalidArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError is returned when a request payload is rejected.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}
func (e *InvalidArgumentError) ErrorCode() string { return "INVALID_ARGUMENT" }
func (e *InvalidArgumentError) Context() map[string]string {
	return map[string]string{"field": e.Field, "reason": e.Reason}
}
func (e *InvalidArgumentError) SuggestedAction() string {
	return fmt.Sprintf("correct the %s field and retry", e.Field)
}
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// ErrConflict is the sentinel behind ConflictError.
var ErrConflict = errors.New("conflict")

// ConflictError is returned when an invariant would be violated by the
// requested operation (e.g. deleting a folder with an active orchestrator).
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }
func (e *ConflictError) ErrorCode() string { return "CONFLICT" }
func (e *ConflictError) Context() map[string]string {
	return map[string]string{"reason": e.Reason}
}
func (e *ConflictError) SuggestedAction() string {
	return "resolve the conflicting state and retry"
}
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// VersionConflictError is a specialization of ConflictError for optimistic
// concurrency (CAS) failures on a versioned row.
type VersionConflictError struct {
	Entity  string
	ID      string
	Version int
}

func (e *VersionConflictError) Error() string {
	return "version conflict: record was modified by another process"
}
func (e *VersionConflictError) ErrorCode() string { return "VERSION_CONFLICT" }
func (e *VersionConflictError) Context() map[string]string {
	return map[string]string{
		"entity":  e.Entity,
		"id":      e.ID,
		"version": strconv.Itoa(e.Version),
	}
}
func (e *VersionConflictError) SuggestedAction() string {
	return "reload the record and retry the operation"
}
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict || target == ErrConflict
}

// ErrTerminal is the sentinel behind TerminalError.
var ErrTerminal = errors.New("terminal error")

// TerminalError wraps a failure from shelling out to the terminal
// multiplexer (tmux).
type TerminalError struct {
	Detail string
}

func (e *TerminalError) Error() string { return "terminal error: " + e.Detail }
func (e *TerminalError) ErrorCode() string { return "TERMINAL_ERROR" }
func (e *TerminalError) Context() map[string]string {
	return map[string]string{"detail": e.Detail}
}
func (e *TerminalError) SuggestedAction() string {
	return "check that tmux is installed and the session is reachable"
}
func (e *TerminalError) Is(target error) bool { return target == ErrTerminal }

// ErrPersistence is the sentinel behind PersistenceError.
var ErrPersistence = errors.New("persistence error")

// PersistenceError wraps a failure from the storage layer that is not a
// more specific kind (not-found, conflict, etc).
type PersistenceError struct {
	Detail string
}

func (e *PersistenceError) Error() string { return "persistence error: " + e.Detail }
func (e *PersistenceError) ErrorCode() string { return "PERSISTENCE_ERROR" }
func (e *PersistenceError) Context() map[string]string {
	return map[string]string{"detail": e.Detail}
}
func (e *PersistenceError) SuggestedAction() string {
	return "retry the operation; if it persists, check database health"
}
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// ErrOther is the sentinel behind OtherError.
var ErrOther = errors.New("other error")

// OtherError is the catch-all for uncategorized failures.
type OtherError struct {
	Detail string
}

func (e *OtherError) Error() string { return e.Detail }
func (e *OtherError) ErrorCode() string { return "OTHER" }
func (e *OtherError) Context() map[string]string {
	return map[string]string{"detail": e.Detail}
}
func (e *OtherError) SuggestedAction() string { return "" }
func (e *OtherError) Is(target error) bool { return target == ErrOther }
