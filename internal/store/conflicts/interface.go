// Package conflicts provides local persistence for detected sync conflicts.
package conflicts

import (
	"context"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// Repository stores conflicts so they survive restarts until resolved.
type Repository interface {
	// Create inserts a new unresolved conflict. If the document already has
	// an unresolved conflict, common.ErrUnresolvedConflictExists is returned.
	Create(ctx context.Context, c *models.Conflict) error
	// GetByID returns the conflict or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Conflict, error)
	// GetUnresolvedByDocument returns the open conflict for a document,
	// or common.ErrNotFound.
	GetUnresolvedByDocument(ctx context.Context, documentSyncID string) (*models.Conflict, error)
	// MarkResolved flips the conflict to resolved with the chosen strategy.
	// Resolving twice returns common.ErrAlreadyResolved.
	MarkResolved(ctx context.Context, id string, strategy models.ResolutionStrategy, at time.Time) error
	// ListUnresolved returns all open conflicts, oldest first.
	ListUnresolved(ctx context.Context) ([]*models.Conflict, error)
}
