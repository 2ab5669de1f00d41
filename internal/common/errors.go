// Package common defines shared constants and sentinel errors used across
// the sync engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Remote service errors.
	ErrVersionConflict   = errors.New("version conflict")
	ErrDuplicateIdentity = errors.New("duplicate sync identifier")
	ErrUnavailable       = errors.New("server unavailable")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")

	// Validation / caller errors.
	ErrValidation             = errors.New("validation error")
	ErrMissingSyncID          = errors.New("document has no sync identifier")
	ErrMalformedSyncID        = errors.New("malformed sync identifier")
	ErrInvalidStateTransition = errors.New("invalid sync state transition")

	// Storage errors (transient: quota, I/O).
	ErrStorage = errors.New("storage error")

	// Conflict lifecycle errors.
	ErrAlreadyResolved          = errors.New("conflict already resolved")
	ErrUnresolvedConflictExists = errors.New("unresolved conflict exists")

	// Engine lifecycle errors.
	ErrEngineStopped = errors.New("engine stopped")
)
