package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

func newTestResolver(now time.Time) *Resolver {
	r := NewResolver(time.Hour)
	r.now = func() time.Time { return now }
	return r
}

func detected(local, remote *models.Document) *models.Conflict {
	d := NewDetector()
	c := d.Detect(local, remote)
	if c == nil {
		panic("fixture snapshots must conflict")
	}
	return c
}

func TestResolve_KeepLocal(t *testing.T) {
	now := t2.Add(time.Minute)
	r := newTestResolver(now)

	local := snapshot(1, "Car Insurance", t1)
	remote := snapshot(1, "Auto Insurance", t2)
	c := detected(local, remote)

	got, err := r.Resolve(c, models.ResolutionKeepLocal, nil)
	require.NoError(t, err)

	assert.Equal(t, "Car Insurance", got.Title)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, models.StatePendingUpload, got.SyncState, "local winner still needs pushing")
	assert.Equal(t, now, got.LastModified)
	assert.Empty(t, got.ConflictID)
	assert.True(t, c.Resolved)
	assert.Equal(t, models.ResolutionKeepLocal, c.Strategy)
}

func TestResolve_KeepRemotePreservesLocalIdentity(t *testing.T) {
	r := newTestResolver(t2.Add(time.Minute))

	local := snapshot(1, "Car Insurance", t1)
	remote := snapshot(1, "Auto Insurance", t2)
	c := detected(local, remote)

	got, err := r.Resolve(c, models.ResolutionKeepRemote, nil)
	require.NoError(t, err)

	assert.Equal(t, "Auto Insurance", got.Title)
	assert.Equal(t, syncID, got.SyncID)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, models.StateSynced, got.SyncState)
}

func TestResolve_Merge(t *testing.T) {
	now := t2.Add(time.Minute)
	r := newTestResolver(now)

	rd := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	local := snapshot(1, "Car Insurance", t1)
	local.Notes = "local note"
	local.AttachmentRefs = []string{"k1", "k2"}
	remote := snapshot(1, "Auto Insurance", t2)
	remote.Notes = "remote note"
	remote.AttachmentRefs = []string{"k2", "k3"}
	remote.RenewalDate = &rd
	remote.CreatedAt = t1.Add(-time.Hour)

	got, err := r.Resolve(detected(local, remote), models.ResolutionMerge, nil)
	require.NoError(t, err)

	assert.Equal(t, "Auto Insurance", got.Title, "later lastModified wins the title")
	assert.Equal(t, []string{"k1", "k2", "k3"}, got.AttachmentRefs)
	assert.Contains(t, got.Notes, "local note")
	assert.Contains(t, got.Notes, "remote note")
	assert.Contains(t, got.Notes, NotesSeparator)
	assert.Equal(t, t1.Add(-time.Hour), got.CreatedAt, "earlier createdAt wins")
	require.NotNil(t, got.RenewalDate)
	assert.Equal(t, rd, *got.RenewalDate, "non-nil renewal date preferred")
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, now, got.LastModified)
	assert.Equal(t, models.StatePendingUpload, got.SyncState)
}

func TestResolve_MergeVersionIsMaxPlusOne(t *testing.T) {
	r := newTestResolver(t2.Add(time.Minute))

	local := snapshot(7, "Car Insurance", t2)
	remote := snapshot(3, "Auto Insurance", t2.Add(time.Second))
	got, err := r.Resolve(detected(local, remote), models.ResolutionMerge, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Version)
}

func TestResolve_MergeAttachmentUnionIsCommutative(t *testing.T) {
	local := snapshot(1, "Car Insurance", t1)
	local.AttachmentRefs = []string{"k2", "k1"}
	remote := snapshot(1, "Auto Insurance", t2)
	remote.AttachmentRefs = []string{"k3", "k2"}

	r := newTestResolver(t2.Add(time.Minute))
	ab, err := r.Resolve(detected(local, remote), models.ResolutionMerge, nil)
	require.NoError(t, err)
	ba, err := r.Resolve(detected(remote, local), models.ResolutionMerge, nil)
	require.NoError(t, err)

	assert.Equal(t, ab.AttachmentRefs, ba.AttachmentRefs)
}

func TestResolve_MergeIdenticalNotesNotDuplicated(t *testing.T) {
	local := snapshot(1, "Car Insurance", t1)
	local.Notes = "same"
	remote := snapshot(1, "Auto Insurance", t2)
	remote.Notes = "same"

	r := newTestResolver(t2.Add(time.Minute))
	got, err := r.Resolve(detected(local, remote), models.ResolutionMerge, nil)
	require.NoError(t, err)
	assert.Equal(t, "same", got.Notes)
}

func TestResolve_Manual(t *testing.T) {
	r := newTestResolver(t2.Add(time.Minute))

	local := snapshot(1, "Car Insurance", t1)
	remote := snapshot(1, "Auto Insurance", t2)
	c := detected(local, remote)

	final := snapshot(1, "Vehicle Insurance", t2)
	got, err := r.Resolve(c, models.ResolutionManual, final)
	require.NoError(t, err)
	assert.Equal(t, "Vehicle Insurance", got.Title)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, models.StatePendingUpload, got.SyncState)
}

func TestResolve_ManualRequiresMatchingIdentity(t *testing.T) {
	r := newTestResolver(t2.Add(time.Minute))
	c := detected(snapshot(1, "Car Insurance", t1), snapshot(1, "Auto Insurance", t2))

	final := snapshot(1, "Vehicle Insurance", t2)
	final.SyncID = "0e6f8ebd-6b65-49a4-9cc0-a0ec2e9a659b"
	_, err := r.Resolve(c, models.ResolutionManual, final)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = r.Resolve(c, models.ResolutionManual, nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestResolve_AlreadyResolved(t *testing.T) {
	r := newTestResolver(t2.Add(time.Minute))
	c := detected(snapshot(1, "Car Insurance", t1), snapshot(1, "Auto Insurance", t2))

	_, err := r.Resolve(c, models.ResolutionKeepLocal, nil)
	require.NoError(t, err)
	_, err = r.Resolve(c, models.ResolutionKeepRemote, nil)
	assert.ErrorIs(t, err, common.ErrAlreadyResolved)
}

func TestAutoStrategy(t *testing.T) {
	r := NewResolver(time.Hour)

	local := snapshot(1, "Car Insurance", t1)

	remoteMuchNewer := snapshot(1, "Auto Insurance", t1.Add(2*time.Hour))
	assert.Equal(t, models.ResolutionKeepRemote, r.AutoStrategy(detected(local, remoteMuchNewer)))

	localMuchNewer := snapshot(1, "Car Insurance", t1.Add(2*time.Hour))
	remoteOld := snapshot(1, "Auto Insurance", t1)
	assert.Equal(t, models.ResolutionKeepLocal, r.AutoStrategy(detected(localMuchNewer, remoteOld)))

	remoteSlightlyNewer := snapshot(1, "Auto Insurance", t1.Add(10*time.Minute))
	assert.Equal(t, models.ResolutionMerge, r.AutoStrategy(detected(local, remoteSlightlyNewer)))
}
