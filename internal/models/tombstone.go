package models

import "time"

// Tombstone records that a sync identifier was deleted. It is created at
// most once per SyncID, never mutated, and blocks the identifier from being
// resurrected by a remote copy during synchronization races.
type Tombstone struct {
	SyncID    string    `json:"syncId"`
	UserID    string    `json:"userId"`
	DeletedBy string    `json:"deletedBy"`
	DeletedAt time.Time `json:"deletedAt"`
	Reason    string    `json:"reason,omitempty"`
}

// Expired reports whether the tombstone has outlived the retention window
// and is eligible for purge.
func (t *Tombstone) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(t.DeletedAt) > retention
}
