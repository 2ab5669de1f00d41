package models

import "fmt"

// AttachmentStatus captures the transfer position of an attachment.
// Exactly one of the three valid statuses holds at any time.
type AttachmentStatus string

const (
	AttachmentNeedsUpload   AttachmentStatus = "needs_upload"
	AttachmentNeedsDownload AttachmentStatus = "needs_download"
	AttachmentSynced        AttachmentStatus = "synced"
)

// FileAttachment links an opaque blob to its owning document. BlobKey is set
// once the blob has been uploaded, LocalRef once it has been downloaded.
// An attachment with neither is invalid.
type FileAttachment struct {
	SyncID         string    `json:"syncId" validate:"required,uuid"`
	DocumentSyncID string    `json:"documentSyncId" validate:"required,uuid"`
	FileName       string    `json:"fileName" validate:"required"`
	BlobKey        string    `json:"blobKey,omitempty"`
	LocalRef       string    `json:"localRef,omitempty"`
	FileSize       int64     `json:"fileSize" validate:"gte=0"`
	Checksum       string    `json:"checksum,omitempty"`
	SyncState      SyncState `json:"syncState"`
}

// TransferStatus derives the attachment's transfer position from which of
// BlobKey/LocalRef are set. Returns an error for the invalid combination
// where neither side holds the bytes.
func (a *FileAttachment) TransferStatus() (AttachmentStatus, error) {
	switch {
	case a.BlobKey == "" && a.LocalRef == "":
		return "", fmt.Errorf("attachment %s: neither blobKey nor localRef set", a.SyncID)
	case a.BlobKey == "":
		return AttachmentNeedsUpload, nil
	case a.LocalRef == "":
		return AttachmentNeedsDownload, nil
	default:
		return AttachmentSynced, nil
	}
}
