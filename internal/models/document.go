// Package models defines the document sync engine's domain types: documents,
// file attachments, tombstones, conflicts and queued sync operations.
package models

import (
	"fmt"
	"time"
)

// Document is the unit of synchronization. SyncID is the stable cross-system
// identity: assigned once at creation, never reassigned or reused. Version
// grows monotonically across every successful write, local or remote.
type Document struct {
	SyncID         string     `json:"syncId" validate:"omitempty,uuid"`
	UserID         string     `json:"userId" validate:"required"`
	Title          string     `json:"title" validate:"required,max=255"`
	Category       string     `json:"category" validate:"max=100"`
	Notes          string     `json:"notes"`
	AttachmentRefs []string   `json:"attachmentRefs" validate:"dive,required"`
	RenewalDate    *time.Time `json:"renewalDate,omitempty"`
	Version        int64      `json:"version" validate:"gte=0"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastModified   time.Time  `json:"lastModified"`
	SyncState      SyncState  `json:"syncState"`
	ConflictID     string     `json:"conflictId,omitempty"`
	Deleted        bool       `json:"deleted"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.AttachmentRefs != nil {
		c.AttachmentRefs = make([]string, len(d.AttachmentRefs))
		copy(c.AttachmentRefs, d.AttachmentRefs)
	}
	if d.RenewalDate != nil {
		rd := *d.RenewalDate
		c.RenewalDate = &rd
	}
	if d.DeletedAt != nil {
		da := *d.DeletedAt
		c.DeletedAt = &da
	}
	return &c
}

// CheckInvariants verifies the structural invariants that must hold for any
// document regardless of sync state: deleted and deletedAt are set together,
// and the version is non-negative.
func (d *Document) CheckInvariants() error {
	if d.Deleted != (d.DeletedAt != nil) {
		return fmt.Errorf("document %s: deleted=%v but deletedAt set=%v", d.SyncID, d.Deleted, d.DeletedAt != nil)
	}
	if d.Version < 0 {
		return fmt.Errorf("document %s: negative version %d", d.SyncID, d.Version)
	}
	return nil
}

// MarkDeleted flips the document into its deleted form at the given time.
func (d *Document) MarkDeleted(now time.Time) {
	d.Deleted = true
	d.DeletedAt = &now
	d.LastModified = now
	d.SyncState = StatePendingDeletion
}
