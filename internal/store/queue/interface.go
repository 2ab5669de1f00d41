// Package queue provides the persisted operation queue drained by the
// sync coordinator.
package queue

import (
	"context"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// Repository persists queued sync operations. The queue holds at most one
// operation per document sync identifier: enqueueing for a document that is
// already queued coalesces into the existing entry instead of duplicating it.
type Repository interface {
	// Enqueue inserts the operation, or coalesces it into an existing entry
	// for the same document. Returns true when coalesced.
	Enqueue(ctx context.Context, op *models.SyncOperation) (bool, error)
	// Due returns operations whose backoff delay has elapsed at now,
	// oldest first.
	Due(ctx context.Context, now time.Time) ([]*models.SyncOperation, error)
	// Get returns the queued operation for a document, or common.ErrNotFound.
	Get(ctx context.Context, documentSyncID string) (*models.SyncOperation, error)
	// BumpRetry records a failed attempt: increments the retry count and
	// reschedules the operation for nextEligibleAt.
	BumpRetry(ctx context.Context, id string, nextEligibleAt time.Time, lastError string) error
	// Remove deletes the operation (success or permanent failure).
	Remove(ctx context.Context, id string) error
	// PendingCount returns the number of queued operations.
	PendingCount(ctx context.Context) (int, error)
	// ListAll returns every queued operation, oldest first.
	ListAll(ctx context.Context) ([]*models.SyncOperation, error)
}
