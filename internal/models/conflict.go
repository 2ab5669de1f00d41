package models

import "time"

// ConflictType classifies how the local and remote versions diverged.
type ConflictType string

const (
	// ConflictVersionMismatch: same version on both sides but different
	// content or lastModified.
	ConflictVersionMismatch ConflictType = "version_mismatch"
	// ConflictConcurrentModification: remote changed more recently without
	// a visible version bump.
	ConflictConcurrentModification ConflictType = "concurrent_modification"
	// ConflictDeletion: one side deleted while the other modified.
	ConflictDeletion ConflictType = "deletion_conflict"
)

// ResolutionStrategy selects how a conflict is settled.
type ResolutionStrategy string

const (
	ResolutionKeepLocal  ResolutionStrategy = "keep_local"
	ResolutionKeepRemote ResolutionStrategy = "keep_remote"
	ResolutionMerge      ResolutionStrategy = "merge"
	ResolutionManual     ResolutionStrategy = "manual"
)

// Conflict pairs the local and remote snapshots of a diverged document.
// At most one unresolved Conflict exists per document sync identifier.
type Conflict struct {
	ID             string             `json:"id"`
	DocumentSyncID string             `json:"documentSyncId"`
	Local          *Document          `json:"local"`
	Remote         *Document          `json:"remote"`
	Type           ConflictType       `json:"type"`
	DetectedAt     time.Time          `json:"detectedAt"`
	Resolved       bool               `json:"resolved"`
	ResolvedAt     *time.Time         `json:"resolvedAt,omitempty"`
	Strategy       ResolutionStrategy `json:"resolutionStrategy,omitempty"`
}
