// Package documents provides the local persistence of document records.
package documents

import (
	"context"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// Repository is the local document store consumed by the sync engine.
type Repository interface {
	// Save upserts a document keyed by its sync identifier.
	Save(ctx context.Context, doc *models.Document) error
	// GetBySyncID returns the document or common.ErrNotFound.
	GetBySyncID(ctx context.Context, syncID string) (*models.Document, error)
	// ListByUser returns all documents for a user, including deleted ones.
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	// ListByState returns documents currently in the given sync state.
	ListByState(ctx context.Context, state models.SyncState) ([]*models.Document, error)
	// ListWithoutIdentity returns documents that never got a sync identifier.
	ListWithoutIdentity(ctx context.Context) ([]*models.Document, error)
	// SetState transitions a document's sync state; illegal transitions are
	// rejected with common.ErrInvalidStateTransition.
	SetState(ctx context.Context, syncID string, state models.SyncState) error
	// Delete removes the local row entirely (after a confirmed remote delete).
	Delete(ctx context.Context, syncID string) error
}
