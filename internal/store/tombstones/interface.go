// Package tombstones provides local persistence for deletion markers.
package tombstones

import (
	"context"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// Repository stores tombstones. Creation is idempotent per sync identifier;
// rows are never updated.
type Repository interface {
	// Create inserts the tombstone if none exists for its SyncID. Returns
	// true when a row was inserted, false when one already existed.
	Create(ctx context.Context, ts *models.Tombstone) (bool, error)
	// Get returns the tombstone or common.ErrNotFound.
	Get(ctx context.Context, syncID string) (*models.Tombstone, error)
	// Exists reports whether a tombstone exists for syncID.
	Exists(ctx context.Context, syncID string) (bool, error)
	// List returns all tombstones for a user.
	List(ctx context.Context, userID string) ([]*models.Tombstone, error)
	// PurgeOlderThan deletes tombstones with deleted_at before cutoff and
	// returns the number of rows removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
