package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from SyncState
		to   SyncState
		want bool
	}{
		{"enqueue to upload", StatePendingUpload, StateUploading, true},
		{"upload success", StateUploading, StateSynced, true},
		{"upload transient failure", StateUploading, StateError, true},
		{"concurrency mismatch during upload", StateUploading, StateConflict, true},
		{"synced picks up local edit", StateSynced, StatePendingUpload, true},
		{"synced sees remote change", StateSynced, StatePendingDownload, true},
		{"conflict resolved", StateConflict, StateSynced, true},
		{"merge result re-queued", StateConflict, StatePendingUpload, true},
		{"error retried", StateError, StateUploading, true},
		{"error exhausts budget", StateError, StatePermanentError, true},
		{"permanent error cleared by caller", StatePermanentError, StatePendingUpload, true},
		{"deletion pushed", StatePendingDeletion, StateUploading, true},

		{"synced jumps to uploading", StateSynced, StateUploading, false},
		{"permanent error auto-retried", StatePermanentError, StateUploading, false},
		{"conflict to error", StateConflict, StateError, false},
		{"download to pending upload", StateDownloading, StatePendingUpload, false},

		{"self transition", StateSynced, StateSynced, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestValidState(t *testing.T) {
	for _, s := range []SyncState{
		StatePendingUpload, StateUploading, StatePendingDownload, StateDownloading,
		StateSynced, StateConflict, StatePendingDeletion, StateError, StatePermanentError,
	} {
		assert.True(t, ValidState(s), string(s))
	}
	assert.False(t, ValidState("uploaded"))
	assert.False(t, ValidState(""))
}
