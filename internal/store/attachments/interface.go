// Package attachments provides local persistence for file attachment records.
package attachments

import (
	"context"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// Repository stores attachment metadata; the bytes themselves live in the
// blob store (remote) or on the local filesystem (LocalRef).
type Repository interface {
	Save(ctx context.Context, att *models.FileAttachment) error
	GetBySyncID(ctx context.Context, syncID string) (*models.FileAttachment, error)
	ListByDocument(ctx context.Context, documentSyncID string) ([]*models.FileAttachment, error)
	// ListByStatus returns attachments whose derived transfer status matches.
	ListByStatus(ctx context.Context, status models.AttachmentStatus) ([]*models.FileAttachment, error)
	Delete(ctx context.Context, syncID string) error
}
