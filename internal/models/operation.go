package models

import "time"

// OperationKind is the type of work a queued sync operation represents.
type OperationKind string

const (
	OpUpload OperationKind = "upload"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

// SyncOperation is a queue entry owned by the coordinator. It is created on
// enqueue, mutated only to bump RetryCount, and removed on success or
// permanent failure. Payload carries the document snapshot to push.
//
// ExpectedVersion is the server version the push is conditioned on. Zero
// means the payload has not been pushed under a known server version yet;
// the push then expects the payload's own version and targets version+1.
// A conflict resolution sets it to the server copy's version so the
// resolved snapshot can land even though its version jumped past it.
type SyncOperation struct {
	ID              string        `json:"id"`
	DocumentSyncID  string        `json:"documentSyncId"`
	Kind            OperationKind `json:"kind"`
	QueuedAt        time.Time     `json:"queuedAt"`
	RetryCount      int           `json:"retryCount"`
	ExpectedVersion int64         `json:"expectedVersion,omitempty"`
	Payload         *Document     `json:"payload"`
}
