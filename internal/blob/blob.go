// Package blob moves attachment payloads between local storage and an
// S3-compatible blob store. Transfers go through presigned URLs so the
// engine never streams file bodies through the sync service itself.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store issues presigned transfer URLs for attachment blobs.
type Store interface {
	// PresignPut returns a fresh storage key and a URL the blob can be
	// uploaded to with a plain HTTP PUT.
	PresignPut(ctx context.Context) (key string, url string, err error)
	// PresignGet returns a URL the blob under key can be fetched from.
	PresignGet(ctx context.Context, key string) (string, error)
}

// RandomStorageKey returns a date-partitioned object key for a new blob.
func RandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
