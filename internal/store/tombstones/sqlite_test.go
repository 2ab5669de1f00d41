package tombstones

import (
	"context"
	"database/sql"
	"testing"
	"time"

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
CREATE TABLE tombstones (
  sync_id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  deleted_by TEXT NOT NULL,
  deleted_at TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)

	return db
}

func TestCreate_IsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	ts := &models.Tombstone{
		SyncID:    "doc1",
		UserID:    "user1",
		DeletedBy: "device-a",
		DeletedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Reason:    "user delete",
	}

	inserted, err := r.Create(ctx, ts)
	require.NoError(t, err)
	assert.True(t, inserted)

	// second creation for the same syncId is a no-op
	later := *ts
	later.DeletedBy = "device-b"
	inserted, err = r.Create(ctx, &later)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := r.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "device-a", got.DeletedBy, "first record wins, never mutated")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tombstones`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCreate_RequiresSyncID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Create(context.Background(), &models.Tombstone{UserID: "user1"})
	require.ErrorIs(t, err, common.ErrMissingSyncID)
}

func TestExists_And_Get(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	ok, err := r.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Get(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = r.Create(ctx, &models.Tombstone{SyncID: "doc1", UserID: "u", DeletedBy: "d", DeletedAt: time.Now()})
	require.NoError(t, err)

	ok, err = r.Exists(ctx, "doc1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPurgeOlderThan(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now()
	old := &models.Tombstone{SyncID: "old", UserID: "u", DeletedBy: "d", DeletedAt: now.Add(-91 * 24 * time.Hour)}
	fresh := &models.Tombstone{SyncID: "fresh", UserID: "u", DeletedBy: "d", DeletedAt: now.Add(-time.Hour)}

	_, err := r.Create(ctx, old)
	require.NoError(t, err)
	_, err = r.Create(ctx, fresh)
	require.NoError(t, err)

	purged, err := r.PurgeOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	ok, err := r.Exists(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_, err := r.Create(ctx, &models.Tombstone{SyncID: "a", UserID: "u1", DeletedBy: "d", DeletedAt: now})
	require.NoError(t, err)
	_, err = r.Create(ctx, &models.Tombstone{SyncID: "b", UserID: "u1", DeletedBy: "d", DeletedAt: now})
	require.NoError(t, err)
	_, err = r.Create(ctx, &models.Tombstone{SyncID: "c", UserID: "u2", DeletedBy: "d", DeletedAt: now})
	require.NoError(t, err)

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, now, got[0].DeletedAt)
}
