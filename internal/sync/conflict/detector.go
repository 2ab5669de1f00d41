// Package conflict detects divergence between the local and remote copies of
// a document and settles it with a resolution strategy.
package conflict

import (
	"time"

	"github.com/google/uuid"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/match"
)

// Detector compares a local and a remote snapshot of the same document.
type Detector struct {
	now func() time.Time
}

// NewDetector constructs a detector.
func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

// Detect reports how local and remote diverged, or nil when they have not.
//
// Snapshots with different sync identifiers are different documents, never a
// conflict. Equal version with identical content and lastModified means no
// divergence; content is compared by hash, so a notes-only edit counts. The
// same version with differing content or timestamps is a version mismatch.
// A remote that is more recent without a visible version bump is treated
// conservatively as concurrent modification instead of being overwritten.
// In every remaining case one side is strictly newer by version and is
// authoritative.
func (d *Detector) Detect(local, remote *models.Document) *models.Conflict {
	if local == nil || remote == nil {
		return nil
	}
	if match.NormalizeSyncID(local.SyncID) != match.NormalizeSyncID(remote.SyncID) {
		return nil
	}

	if local.Deleted != remote.Deleted {
		return d.newConflict(local, remote, models.ConflictDeletion)
	}

	if local.Version == remote.Version &&
		match.SameContent(local, remote) &&
		local.LastModified.Equal(remote.LastModified) {
		return nil
	}

	if local.Version == remote.Version {
		return d.newConflict(local, remote, models.ConflictVersionMismatch)
	}

	if remote.LastModified.After(local.LastModified) && remote.Version <= local.Version {
		return d.newConflict(local, remote, models.ConflictConcurrentModification)
	}

	return nil
}

func (d *Detector) newConflict(local, remote *models.Document, typ models.ConflictType) *models.Conflict {
	return &models.Conflict{
		ID:             uuid.NewString(),
		DocumentSyncID: local.SyncID,
		Local:          local.Clone(),
		Remote:         remote.Clone(),
		Type:           typ,
		DetectedAt:     d.now().UTC(),
	}
}
