package models

import "time"

// EventType enumerates the sync events observable by callers.
type EventType string

const (
	EventStarted            EventType = "started"
	EventCompleted          EventType = "completed"
	EventFailed             EventType = "failed"
	EventDocumentUploaded   EventType = "document_uploaded"
	EventDocumentDownloaded EventType = "document_downloaded"
	EventConflictDetected   EventType = "conflict_detected"
	EventStateChanged       EventType = "state_changed"
)

// SyncEvent is emitted by the coordinator for observers. DocumentSyncID is
// empty for cycle-level events (started, completed, failed).
type SyncEvent struct {
	Type           EventType `json:"type"`
	DocumentSyncID string    `json:"documentSyncId,omitempty"`
	Message        string    `json:"message,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SyncStatus is a point-in-time read of engine progress.
type SyncStatus struct {
	IsSyncing    bool       `json:"isSyncing"`
	PendingCount int        `json:"pendingCount"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}
