package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/philipmoss2002/life-app-sub008/internal/filex"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

const attachmentCacheDir = "attachments"

// AttachFile registers a local file as an attachment of the document and
// schedules its upload. The blob key is appended to the document's
// attachment refs once the upload has completed.
func (c *Coordinator) AttachFile(ctx context.Context, documentSyncID, localPath string) (*models.FileAttachment, error) {
	if _, err := c.repos.Documents.GetBySyncID(ctx, documentSyncID); err != nil {
		return nil, err
	}
	data, err := filex.ReadBlob(localPath)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	att := &models.FileAttachment{
		SyncID:         uuid.NewString(),
		DocumentSyncID: documentSyncID,
		FileName:       filepath.Base(localPath),
		LocalRef:       localPath,
		FileSize:       int64(len(data)),
		Checksum:       hex.EncodeToString(sum[:]),
		SyncState:      models.StatePendingUpload,
	}
	if err := c.repos.Attachments.Save(ctx, att); err != nil {
		return nil, err
	}

	c.TriggerSync()
	return att, nil
}

// transferAttachments moves pending attachment blobs through the blob
// store: local files without a blob key are uploaded via a presigned PUT,
// remote blobs without a local file are downloaded via a presigned GET.
// Failures are collected per attachment; one broken blob does not stop the
// rest. It returns how many document updates the uploads queued, so the
// cycle can count them like its own pushes.
func (c *Coordinator) transferAttachments(ctx context.Context) (int, error) {
	if c.blobs == nil || c.transfer == nil {
		return 0, nil
	}

	var errs []error
	queued := 0

	pendingUploads, err := c.repos.Attachments.ListByStatus(ctx, models.AttachmentNeedsUpload)
	if err != nil {
		return 0, fmt.Errorf("list attachments needing upload: %w", err)
	}
	for _, att := range pendingUploads {
		if ctx.Err() != nil {
			break
		}
		n, err := c.uploadAttachment(ctx, att)
		if err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", att.SyncID, err))
		}
		queued += n
	}

	pendingDownloads, err := c.repos.Attachments.ListByStatus(ctx, models.AttachmentNeedsDownload)
	if err != nil {
		return queued, fmt.Errorf("list attachments needing download: %w", err)
	}
	for _, att := range pendingDownloads {
		if ctx.Err() != nil {
			break
		}
		if err := c.downloadAttachment(ctx, att); err != nil {
			errs = append(errs, fmt.Errorf("download %s: %w", att.SyncID, err))
		}
	}

	return queued, errors.Join(errs...)
}

func (c *Coordinator) uploadAttachment(ctx context.Context, att *models.FileAttachment) (int, error) {
	data, err := filex.ReadBlob(att.LocalRef)
	if err != nil {
		return 0, err
	}

	key, url, err := c.blobs.PresignPut(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.transfer.Upload(ctx, url, data); err != nil {
		return 0, err
	}

	att.BlobKey = key
	att.SyncState = models.StateSynced
	if err := c.repos.Attachments.Save(ctx, att); err != nil {
		return 0, err
	}
	c.log.Debug(ctx, "attachment uploaded", "sync_id", att.SyncID, "blob_key", key)

	// the owning document now references the blob; push that
	doc, err := c.repos.Documents.GetBySyncID(ctx, att.DocumentSyncID)
	if err == nil && !slices.Contains(doc.AttachmentRefs, key) {
		doc.AttachmentRefs = append(doc.AttachmentRefs, key)
		if err := c.Enqueue(ctx, doc, models.OpUpdate); err != nil {
			c.log.Warn(ctx, "queue attachment ref update", "sync_id", doc.SyncID, "error", err)
			return 0, nil
		}
		return 1, nil
	}
	return 0, nil
}

// dropAttachments removes the attachment rows of a deleted document. The
// blobs themselves stay in the store; only the local bookkeeping goes.
func (c *Coordinator) dropAttachments(ctx context.Context, documentSyncID string) {
	atts, err := c.repos.Attachments.ListByDocument(ctx, documentSyncID)
	if err != nil {
		c.log.Warn(ctx, "list attachments for cleanup", "sync_id", documentSyncID, "error", err)
		return
	}
	for _, att := range atts {
		if err := c.repos.Attachments.Delete(ctx, att.SyncID); err != nil {
			c.log.Warn(ctx, "remove attachment row", "sync_id", att.SyncID, "error", err)
		}
	}
}

// registerIncomingAttachments records a needs-download entry for every blob
// key of a pulled document that has no local attachment yet.
func (c *Coordinator) registerIncomingAttachments(ctx context.Context, doc *models.Document) {
	if len(doc.AttachmentRefs) == 0 {
		return
	}
	existing, err := c.repos.Attachments.ListByDocument(ctx, doc.SyncID)
	if err != nil {
		c.log.Warn(ctx, "list local attachments", "sync_id", doc.SyncID, "error", err)
		return
	}
	known := make(map[string]bool, len(existing))
	for _, att := range existing {
		known[att.BlobKey] = true
	}

	for _, ref := range doc.AttachmentRefs {
		if known[ref] {
			continue
		}
		att := &models.FileAttachment{
			SyncID:         uuid.NewString(),
			DocumentSyncID: doc.SyncID,
			FileName:       path.Base(ref),
			BlobKey:        ref,
			SyncState:      models.StatePendingDownload,
		}
		if err := c.repos.Attachments.Save(ctx, att); err != nil {
			c.log.Warn(ctx, "register incoming attachment", "sync_id", doc.SyncID, "blob_key", ref, "error", err)
		}
	}
}

func (c *Coordinator) downloadAttachment(ctx context.Context, att *models.FileAttachment) error {
	url, err := c.blobs.PresignGet(ctx, att.BlobKey)
	if err != nil {
		return err
	}
	data, err := c.transfer.Download(ctx, url)
	if err != nil {
		return err
	}

	dir, err := filex.EnsureSubDir(attachmentCacheDir)
	if err != nil {
		return err
	}
	path, err := filex.WriteBlob(dir, att.SyncID+"_"+att.FileName, data)
	if err != nil {
		return err
	}

	att.LocalRef = path
	att.SyncState = models.StateSynced
	if err := c.repos.Attachments.Save(ctx, att); err != nil {
		return err
	}
	c.log.Debug(ctx, "attachment downloaded", "sync_id", att.SyncID, "path", path)
	return nil
}
