// Package deletion manages the tombstone lifecycle: writing a marker when a
// synced document is deleted, guarding incoming remote documents against
// resurrection, and purging markers past their retention window.
package deletion

import (
	"context"
	"fmt"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/logging"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/store/tombstones"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/match"
)

// Tracker records deletions and filters resurrected documents.
type Tracker struct {
	tombstones tombstones.Repository
	log        logging.Logger
	retention  time.Duration
	now        func() time.Time
}

// NewTracker constructs a tracker with the given retention window.
func NewTracker(repo tombstones.Repository, log logging.Logger, retention time.Duration) *Tracker {
	return &Tracker{
		tombstones: repo,
		log:        log.With("component", "deletion"),
		retention:  retention,
		now:        time.Now,
	}
}

// TrackDeletion records a tombstone for the document and flips it into its
// deleted form. Documents without a sync identifier are deleted locally but
// cannot be tombstoned: they never existed cross-device, so there is nothing
// to protect against. Tombstone creation is idempotent; tracking the same
// identifier twice leaves exactly one marker.
func (t *Tracker) TrackDeletion(ctx context.Context, doc *models.Document, deletedBy, reason string) error {
	now := t.now().UTC()

	if match.NormalizeSyncID(doc.SyncID) != "" {
		inserted, err := t.tombstones.Create(ctx, &models.Tombstone{
			SyncID:    doc.SyncID,
			UserID:    doc.UserID,
			DeletedBy: deletedBy,
			DeletedAt: now,
			Reason:    reason,
		})
		if err != nil {
			return fmt.Errorf("create tombstone: %w", err)
		}
		if !inserted {
			t.log.Debug(ctx, "tombstone already exists", "sync_id", doc.SyncID)
		}
	} else {
		t.log.Warn(ctx, "deleting document without identity, no tombstone possible", "title", doc.Title)
	}

	doc.MarkDeleted(now)
	return nil
}

// IsTombstoned reports whether the identifier was deleted before.
func (t *Tracker) IsTombstoned(ctx context.Context, syncID string) (bool, error) {
	if match.NormalizeSyncID(syncID) == "" {
		return false, nil
	}
	return t.tombstones.Exists(ctx, syncID)
}

// FilterIncoming drops remote documents whose identifier is tombstoned.
// A tombstoned identifier means the document was deleted here and must not
// be resurrected by a copy the remote still carries.
func (t *Tracker) FilterIncoming(ctx context.Context, docs []*models.Document) ([]*models.Document, error) {
	kept := make([]*models.Document, 0, len(docs))
	for _, d := range docs {
		dead, err := t.IsTombstoned(ctx, d.SyncID)
		if err != nil {
			return nil, err
		}
		if dead {
			t.log.Info(ctx, "discarding tombstoned remote document", "sync_id", d.SyncID)
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

// Purge removes tombstones older than the retention window and returns the
// number removed. Purging re-opens the (unlikely) resurrection window for
// those identifiers; that tradeoff is accepted to keep the table bounded.
func (t *Tracker) Purge(ctx context.Context) (int64, error) {
	cutoff := t.now().UTC().Add(-t.retention)
	n, err := t.tombstones.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}
	if n > 0 {
		t.log.Info(ctx, "purged expired tombstones", "count", n)
	}
	return n, nil
}
