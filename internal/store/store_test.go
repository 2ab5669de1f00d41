package store

import (
	"context"
	"testing"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDatabase_MigratesAndWiresRepositories(t *testing.T) {
	ctx := context.Background()

	repos, err := InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })

	tableExists := func(name string) bool {
		var n int
		require.NoError(t, repos.DB.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n))
		return n == 1
	}

	for _, table := range []string{"documents", "attachments", "tombstones", "sync_queue", "conflicts"} {
		assert.True(t, tableExists(table), table)
	}

	// a round trip through each repository proves the schema matches
	now := time.Now().UTC()
	doc := &models.Document{
		SyncID:       "11111111-1111-1111-1111-111111111111",
		UserID:       "user1",
		Title:        "Car Insurance",
		CreatedAt:    now,
		LastModified: now,
		SyncState:    models.StatePendingUpload,
	}
	require.NoError(t, repos.Documents.Save(ctx, doc))

	inserted, err := repos.Tombstones.Create(ctx, &models.Tombstone{
		SyncID: "22222222-2222-2222-2222-222222222222", UserID: "user1", DeletedBy: "user1", DeletedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	_, err = repos.Queue.Enqueue(ctx, &models.SyncOperation{
		ID: "op1", DocumentSyncID: doc.SyncID, Kind: models.OpUpload, QueuedAt: now, Payload: doc,
	})
	require.NoError(t, err)

	n, err := repos.Queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
