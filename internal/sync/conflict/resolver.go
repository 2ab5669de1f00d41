package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/match"
)

// NotesSeparator joins both sides' notes when a merge cannot pick one.
const NotesSeparator = "\n--- merged ---\n"

// Resolver settles conflicts. Every strategy preserves the original sync
// identifier and produces a version strictly greater than either snapshot.
type Resolver struct {
	// autoThreshold is the recency margin beyond which background
	// resolution prefers one side outright instead of merging.
	autoThreshold time.Duration
	now           func() time.Time
}

// NewResolver constructs a resolver with the given auto-resolve threshold.
func NewResolver(autoThreshold time.Duration) *Resolver {
	return &Resolver{autoThreshold: autoThreshold, now: time.Now}
}

// AutoStrategy picks the strategy for unattended resolution: a side that is
// newer by more than the threshold wins outright, otherwise the two are
// merged.
func (r *Resolver) AutoStrategy(c *models.Conflict) models.ResolutionStrategy {
	delta := c.Remote.LastModified.Sub(c.Local.LastModified)
	switch {
	case delta > r.autoThreshold:
		return models.ResolutionKeepRemote
	case -delta > r.autoThreshold:
		return models.ResolutionKeepLocal
	default:
		return models.ResolutionMerge
	}
}

// Resolve applies the strategy and returns the winning document. The
// conflict record is marked resolved in place; resolving it again is
// common.ErrAlreadyResolved. For ResolutionManual the caller supplies the
// final document via explicit; it is validated, never synthesized.
func (r *Resolver) Resolve(c *models.Conflict, strategy models.ResolutionStrategy, explicit *models.Document) (*models.Document, error) {
	if c.Resolved {
		return nil, common.ErrAlreadyResolved
	}
	if c.Local == nil || c.Remote == nil {
		return nil, fmt.Errorf("%w: conflict %s is missing a snapshot", common.ErrValidation, c.ID)
	}

	now := r.now().UTC()
	nextVersion := maxVersion(c.Local, c.Remote) + 1

	var result *models.Document
	switch strategy {
	case models.ResolutionKeepLocal:
		result = c.Local.Clone()
		result.SyncState = models.StatePendingUpload

	case models.ResolutionKeepRemote:
		result = c.Remote.Clone()
		result.SyncID = c.Local.SyncID
		result.SyncState = models.StateSynced

	case models.ResolutionMerge:
		result = r.merge(c.Local, c.Remote)
		result.SyncState = models.StatePendingUpload

	case models.ResolutionManual:
		if explicit == nil {
			return nil, fmt.Errorf("%w: manual resolution requires a document", common.ErrValidation)
		}
		if match.NormalizeSyncID(explicit.SyncID) != match.NormalizeSyncID(c.Local.SyncID) {
			return nil, fmt.Errorf("%w: manual resolution must keep sync id %s", common.ErrValidation, c.Local.SyncID)
		}
		if err := explicit.CheckInvariants(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		result = explicit.Clone()
		result.SyncState = models.StatePendingUpload

	default:
		return nil, fmt.Errorf("%w: unknown resolution strategy %q", common.ErrValidation, strategy)
	}

	result.Version = nextVersion
	result.LastModified = now
	result.ConflictID = ""

	c.Resolved = true
	c.ResolvedAt = &now
	c.Strategy = strategy

	return result, nil
}

// merge combines the two snapshots field by field: title and category follow
// the side with the later lastModified, attachment references are the
// deduplicated union of both sides, notes are kept when identical and joined
// under a visible separator otherwise, createdAt is the earlier of the two,
// and the renewal date prefers whichever side has one.
func (r *Resolver) merge(local, remote *models.Document) *models.Document {
	newer, older := local, remote
	if remote.LastModified.After(local.LastModified) {
		newer, older = remote, local
	}

	result := local.Clone()
	result.Title = newer.Title
	result.Category = newer.Category

	result.AttachmentRefs = unionRefs(local.AttachmentRefs, remote.AttachmentRefs)

	switch {
	case local.Notes == remote.Notes:
		// keep as is
	case local.Notes == "":
		result.Notes = remote.Notes
	case remote.Notes == "":
		result.Notes = local.Notes
	default:
		result.Notes = local.Notes + NotesSeparator + remote.Notes
	}

	if remote.CreatedAt.Before(local.CreatedAt) {
		result.CreatedAt = remote.CreatedAt
	}

	result.RenewalDate = nil
	if newer.RenewalDate != nil {
		rd := *newer.RenewalDate
		result.RenewalDate = &rd
	} else if older.RenewalDate != nil {
		rd := *older.RenewalDate
		result.RenewalDate = &rd
	}

	result.Deleted = false
	result.DeletedAt = nil
	return result
}

func unionRefs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, ref := range a {
		seen[ref] = struct{}{}
	}
	for _, ref := range b {
		seen[ref] = struct{}{}
	}
	union := make([]string, 0, len(seen))
	for ref := range seen {
		union = append(union, ref)
	}
	sort.Strings(union)
	return union
}

func maxVersion(a, b *models.Document) int64 {
	if a.Version > b.Version {
		return a.Version
	}
	return b.Version
}
