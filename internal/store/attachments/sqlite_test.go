package attachments

import (
	"context"
	"database/sql"
	"testing"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE attachments (
  sync_id TEXT PRIMARY KEY,
  document_sync_id TEXT NOT NULL,
  file_name TEXT NOT NULL,
  blob_key TEXT NOT NULL DEFAULT '',
  local_ref TEXT NOT NULL DEFAULT '',
  file_size INTEGER NOT NULL DEFAULT 0,
  checksum TEXT NOT NULL DEFAULT '',
  sync_state TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func TestSave_UpsertAndGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	att := &models.FileAttachment{
		SyncID:         "att1",
		DocumentSyncID: "doc1",
		FileName:       "policy.pdf",
		LocalRef:       "/data/policy.pdf",
		FileSize:       1024,
		SyncState:      models.StatePendingUpload,
	}
	require.NoError(t, r.Save(ctx, att))

	// uploaded: blob key gets set
	att.BlobKey = "users/2026/8/att1"
	att.SyncState = models.StateSynced
	require.NoError(t, r.Save(ctx, att))

	got, err := r.GetBySyncID(ctx, "att1")
	require.NoError(t, err)
	assert.Equal(t, "users/2026/8/att1", got.BlobKey)
	assert.Equal(t, models.StateSynced, got.SyncState)
}

func TestSave_RejectsInvalidAttachment(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	att := &models.FileAttachment{SyncID: "att1", DocumentSyncID: "doc1", FileName: "x"}
	err := r.Save(context.Background(), att)
	require.ErrorIs(t, err, common.ErrValidation, "neither blobKey nor localRef")
}

func TestListByStatus(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	seed := []*models.FileAttachment{
		{SyncID: "up", DocumentSyncID: "d", FileName: "a", LocalRef: "/a", SyncState: models.StatePendingUpload},
		{SyncID: "down", DocumentSyncID: "d", FileName: "b", BlobKey: "k/b", SyncState: models.StatePendingDownload},
		{SyncID: "done", DocumentSyncID: "d", FileName: "c", BlobKey: "k/c", LocalRef: "/c", SyncState: models.StateSynced},
	}
	for _, att := range seed {
		require.NoError(t, r.Save(ctx, att))
	}

	needUp, err := r.ListByStatus(ctx, models.AttachmentNeedsUpload)
	require.NoError(t, err)
	require.Len(t, needUp, 1)
	assert.Equal(t, "up", needUp[0].SyncID)

	needDown, err := r.ListByStatus(ctx, models.AttachmentNeedsDownload)
	require.NoError(t, err)
	require.Len(t, needDown, 1)
	assert.Equal(t, "down", needDown[0].SyncID)

	synced, err := r.ListByStatus(ctx, models.AttachmentSynced)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, "done", synced[0].SyncID)

	_, err = r.ListByStatus(ctx, "bogus")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestListByDocument_And_Delete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, &models.FileAttachment{SyncID: "a1", DocumentSyncID: "doc1", FileName: "a", LocalRef: "/a", SyncState: models.StatePendingUpload}))
	require.NoError(t, r.Save(ctx, &models.FileAttachment{SyncID: "a2", DocumentSyncID: "doc1", FileName: "b", LocalRef: "/b", SyncState: models.StatePendingUpload}))
	require.NoError(t, r.Save(ctx, &models.FileAttachment{SyncID: "a3", DocumentSyncID: "doc2", FileName: "c", LocalRef: "/c", SyncState: models.StatePendingUpload}))

	got, err := r.ListByDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, r.Delete(ctx, "a1"))
	require.ErrorIs(t, r.Delete(ctx, "a1"), common.ErrNotFound)

	got, err = r.ListByDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
