// Package match resolves document identity and equivalence: exact lookup by
// sync identifier, content hashing for identifier-less comparison, and
// duplicate-identity validation.
package match

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// NormalizeSyncID returns the canonical form of a sync identifier. Matching
// is case-insensitive, so identifiers are compared in this form only.
func NormalizeSyncID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ValidateSyncID rejects empty and malformed identifiers. Identifiers are
// UUIDs; anything else is common.ErrMalformedSyncID.
func ValidateSyncID(id string) error {
	normalized := NormalizeSyncID(id)
	if normalized == "" {
		return common.ErrMissingSyncID
	}
	if _, err := uuid.Parse(normalized); err != nil {
		return fmt.Errorf("%w: %q", common.ErrMalformedSyncID, id)
	}
	return nil
}

// BySyncID finds the document whose identifier equals syncID after
// normalization. Matching is exact: no prefix or fuzzy lookup. Returns
// common.ErrNotFound when no document matches.
func BySyncID(docs []*models.Document, syncID string) (*models.Document, error) {
	if err := ValidateSyncID(syncID); err != nil {
		return nil, err
	}
	want := NormalizeSyncID(syncID)
	for _, d := range docs {
		if NormalizeSyncID(d.SyncID) == want {
			return d, nil
		}
	}
	return nil, common.ErrNotFound
}

// ContentHash digests only the user-visible mutable fields: title, category,
// notes and the attachment set. Versions, timestamps, sync bookkeeping and
// identifiers are excluded, so hash equality means "same content" regardless
// of where each copy sits in its sync lifecycle. Attachment references are
// sorted first: the hash is invariant to their order.
func ContentHash(doc *models.Document) string {
	refs := make([]string, len(doc.AttachmentRefs))
	copy(refs, doc.AttachmentRefs)
	sort.Strings(refs)

	h := sha256.New()
	for _, field := range []string{doc.Title, doc.Category, doc.Notes} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	for _, ref := range refs {
		h.Write([]byte(ref))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SameContent reports whether two documents carry the same user-visible
// content.
func SameContent(a, b *models.Document) bool {
	return ContentHash(a) == ContentHash(b)
}

// WithoutIdentity returns the documents lacking a sync identifier. These are
// migration leftovers that still need one assigned before they can sync.
func WithoutIdentity(docs []*models.Document) []*models.Document {
	var result []*models.Document
	for _, d := range docs {
		if NormalizeSyncID(d.SyncID) == "" {
			result = append(result, d)
		}
	}
	return result
}

// ValidateUniqueIdentities groups documents by normalized identifier and
// reports any identifier shared by more than one document. Duplicates are a
// violation to surface, never to resolve silently.
func ValidateUniqueIdentities(docs []*models.Document) error {
	seen := make(map[string]int)
	for _, d := range docs {
		id := NormalizeSyncID(d.SyncID)
		if id == "" {
			continue
		}
		seen[id]++
	}
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	return fmt.Errorf("%w: %s", common.ErrDuplicateIdentity, strings.Join(dups, ", "))
}
