// Package remote defines the contract with the remote document service and
// provides a Postgres-backed reference implementation. The wire protocol is
// deliberately abstracted: the engine only depends on this interface.
package remote

import (
	"context"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// Service is the remote document service consumed by the sync engine.
//
// Update has compare-and-swap semantics: the write only lands when the
// server's current version equals expectedVersion, otherwise the server's
// copy is reported in the result instead of being overwritten. The payload
// carries the version to store, which may jump past expectedVersion+1 when
// a conflict resolution is pushed.
type Service interface {
	// Create stores a new document. The server may assign identity fields
	// (a missing sync identifier in particular). A sync identifier that is
	// already taken yields common.ErrDuplicateIdentity.
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	// Update applies an optimistic-concurrency update conditioned on
	// expectedVersion.
	Update(ctx context.Context, doc *models.Document, expectedVersion int64) UpdateResult
	// Get returns the document or common.ErrNotFound.
	Get(ctx context.Context, syncID string) (*models.Document, error)
	// List returns the user's documents, optionally excluding deleted ones.
	List(ctx context.Context, userID string, excludeDeleted bool) ([]*models.Document, error)
	// Ping probes reachability.
	Ping(ctx context.Context) error
}

// UpdateResult is the discriminated outcome of Update: exactly one of the
// three branches holds. Conflict handling becomes a normal branch for the
// caller rather than error-driven control flow.
type UpdateResult struct {
	// Doc is the stored document after a successful update.
	Doc *models.Document
	// ServerDoc is the server's current copy when the version check failed.
	ServerDoc *models.Document
	// Err is set for any failure other than a version conflict.
	Err error
}

// UpdateOK returns a success result carrying the stored document.
func UpdateOK(doc *models.Document) UpdateResult { return UpdateResult{Doc: doc} }

// UpdateConflict returns a conflict result carrying the server's copy.
func UpdateConflict(serverDoc *models.Document) UpdateResult {
	return UpdateResult{ServerDoc: serverDoc}
}

// UpdateFailed returns a failure result.
func UpdateFailed(err error) UpdateResult { return UpdateResult{Err: err} }

// Ok reports whether the update succeeded.
func (r UpdateResult) Ok() bool { return r.Err == nil && r.ServerDoc == nil }

// Conflicted reports whether the update hit a version conflict.
func (r UpdateResult) Conflicted() bool { return r.ServerDoc != nil }
