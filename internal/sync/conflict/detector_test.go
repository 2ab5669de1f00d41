package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

const syncID = "5f0c19a6-16ff-4274-b4a0-3ca0712e548e"

var (
	t1 = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
)

func snapshot(version int64, title string, lastModified time.Time) *models.Document {
	return &models.Document{
		SyncID:       syncID,
		UserID:       "u1",
		Title:        title,
		Version:      version,
		CreatedAt:    t1,
		LastModified: lastModified,
	}
}

func TestDetect_DifferentIdentitiesNeverConflict(t *testing.T) {
	d := NewDetector()
	local := snapshot(1, "Car Insurance", t1)
	remote := snapshot(1, "Passport", t2)
	remote.SyncID = "0e6f8ebd-6b65-49a4-9cc0-a0ec2e9a659b"

	assert.Nil(t, d.Detect(local, remote))
}

func TestDetect_IdenticalSnapshotsNeverConflict(t *testing.T) {
	d := NewDetector()
	assert.Nil(t, d.Detect(snapshot(2, "Car Insurance", t1), snapshot(2, "Car Insurance", t1)))
}

func TestDetect_VersionMismatch(t *testing.T) {
	d := NewDetector()

	// same version, diverged title, remote modified later
	local := snapshot(1, "Car Insurance", t1)
	remote := snapshot(1, "Auto Insurance", t2)

	c := d.Detect(local, remote)
	require.NotNil(t, c)
	assert.Equal(t, models.ConflictVersionMismatch, c.Type)
	assert.Equal(t, syncID, c.DocumentSyncID)
	assert.Equal(t, "Car Insurance", c.Local.Title)
	assert.Equal(t, "Auto Insurance", c.Remote.Title)
}

func TestDetect_NotesOnlyDivergenceIsVersionMismatch(t *testing.T) {
	d := NewDetector()
	local := snapshot(3, "Car Insurance", t1)
	remote := snapshot(3, "Car Insurance", t1)
	local.Notes = "renewed by phone"
	remote.Notes = "renewed online"

	c := d.Detect(local, remote)
	require.NotNil(t, c)
	assert.Equal(t, models.ConflictVersionMismatch, c.Type)
}

func TestDetect_ConcurrentModification(t *testing.T) {
	d := NewDetector()
	local := snapshot(4, "Car Insurance", t1)
	remote := snapshot(3, "Auto Insurance", t2)

	c := d.Detect(local, remote)
	require.NotNil(t, c)
	assert.Equal(t, models.ConflictConcurrentModification, c.Type)
}

func TestDetect_StrictlyNewerSideIsAuthoritative(t *testing.T) {
	d := NewDetector()

	// remote newer by version: plain download, not a conflict
	assert.Nil(t, d.Detect(snapshot(1, "Car Insurance", t2), snapshot(2, "Auto Insurance", t1)))
	// local newer by version and by time: plain upload
	assert.Nil(t, d.Detect(snapshot(5, "Car Insurance", t2), snapshot(4, "Car Insurance", t1)))
}

func TestDetect_DeletionConflict(t *testing.T) {
	d := NewDetector()
	local := snapshot(2, "Car Insurance", t1)
	local.MarkDeleted(t2)
	remote := snapshot(2, "Auto Insurance", t2)

	c := d.Detect(local, remote)
	require.NotNil(t, c)
	assert.Equal(t, models.ConflictDeletion, c.Type)
}

func TestDetect_SnapshotsAreCopies(t *testing.T) {
	d := NewDetector()
	local := snapshot(1, "Car Insurance", t1)
	remote := snapshot(1, "Auto Insurance", t2)

	c := d.Detect(local, remote)
	require.NotNil(t, c)

	local.Title = "mutated after detection"
	assert.Equal(t, "Car Insurance", c.Local.Title)
}
