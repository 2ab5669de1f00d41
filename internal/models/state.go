package models

// SyncState describes where a document sits in its sync lifecycle.
type SyncState string

const (
	StatePendingUpload   SyncState = "pending_upload"
	StateUploading       SyncState = "uploading"
	StatePendingDownload SyncState = "pending_download"
	StateDownloading     SyncState = "downloading"
	StateSynced          SyncState = "synced"
	StateConflict        SyncState = "conflict"
	StatePendingDeletion SyncState = "pending_deletion"
	StateError           SyncState = "error"

	// StatePermanentError is reached after the retry budget is exhausted.
	// It is distinct from StateError: the engine never retries it
	// automatically, the caller must clear it explicitly.
	StatePermanentError SyncState = "permanent_error"
)

// legalTransitions lists, per state, the states a document may move to.
// StateSynced is the stable state: a document there has no pending work.
var legalTransitions = map[SyncState][]SyncState{
	StatePendingUpload:   {StateUploading, StateConflict, StatePendingDeletion, StateError, StatePermanentError},
	StateUploading:       {StateSynced, StateError, StateConflict, StatePermanentError},
	StatePendingDownload: {StateDownloading, StatePendingDeletion, StateError, StatePermanentError},
	StateDownloading:     {StateSynced, StateError, StateConflict, StatePermanentError},
	StateSynced:          {StatePendingUpload, StatePendingDownload, StateConflict, StatePendingDeletion},
	StateConflict:        {StateSynced, StatePendingUpload, StatePendingDeletion},
	StateError:           {StatePendingUpload, StatePendingDownload, StateUploading, StateDownloading, StatePendingDeletion, StatePermanentError},
	StatePendingDeletion: {StateUploading, StateSynced, StateError, StatePermanentError},
	StatePermanentError:  {StatePendingUpload, StatePendingDownload, StatePendingDeletion},
}

// ValidState reports whether s is one of the known sync states.
func ValidState(s SyncState) bool {
	if s == StatePermanentError {
		return true
	}
	_, ok := legalTransitions[s]
	return ok
}

// CanTransition reports whether moving a document from one state to
// another is legal. A no-op transition (from == to) is always allowed.
func CanTransition(from, to SyncState) bool {
	if from == to {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
