package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/match"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/retry"
)

// Enqueue accepts a local write for synchronization. The document is
// validated, persisted in its pending state, and queued; enqueueing a
// document that is already queued coalesces into the existing entry.
// Deletes get a tombstone first, so the identifier can never be resurrected
// by a concurrent pull.
func (c *Coordinator) Enqueue(ctx context.Context, doc *models.Document, kind models.OperationKind) error {
	if err := c.validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	now := c.now().UTC()

	switch kind {
	case models.OpUpload:
		if match.NormalizeSyncID(doc.SyncID) == "" {
			doc.SyncID = uuid.NewString()
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.LastModified = now
		doc.SyncState = models.StatePendingUpload

	case models.OpUpdate:
		if err := match.ValidateSyncID(doc.SyncID); err != nil {
			return err
		}
		doc.LastModified = now
		doc.SyncState = models.StatePendingUpload

	case models.OpDelete:
		if err := c.tracker.TrackDeletion(ctx, doc, doc.UserID, "user delete"); err != nil {
			return err
		}
		if match.NormalizeSyncID(doc.SyncID) == "" {
			// never synced anywhere: nothing to push, nothing to queue
			return nil
		}

	default:
		return fmt.Errorf("%w: unknown operation kind %q", common.ErrValidation, kind)
	}

	if err := c.repos.Documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("persist pending document: %w", err)
	}

	op := &models.SyncOperation{
		ID:             uuid.NewString(),
		DocumentSyncID: doc.SyncID,
		Kind:           kind,
		QueuedAt:       now,
		Payload:        doc.Clone(),
	}
	coalesced, err := c.repos.Queue.Enqueue(ctx, op)
	if err != nil {
		return fmt.Errorf("enqueue operation: %w", err)
	}
	if coalesced {
		c.log.Debug(ctx, "operation coalesced into queued entry", "sync_id", doc.SyncID, "kind", kind)
	}

	c.emit(models.EventStateChanged, doc.SyncID, string(doc.SyncState))
	c.TriggerSync()
	return nil
}

// Update applies a partial edit to a stored document and queues the result
// for synchronization. A nil or empty patch is rejected.
func (c *Coordinator) Update(ctx context.Context, syncID string, patch *models.DocumentPatch) (*models.Document, error) {
	if patch == nil || patch.IsZero() {
		return nil, fmt.Errorf("%w: empty patch", common.ErrValidation)
	}
	patch.Sanitize()
	if err := c.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	doc, err := c.repos.Documents.GetBySyncID(ctx, syncID)
	if err != nil {
		return nil, err
	}
	patch.Apply(doc, c.now().UTC())

	if err := c.Enqueue(ctx, doc, models.OpUpdate); err != nil {
		return nil, err
	}
	return doc, nil
}

// ResolveConflict settles a recorded conflict with the given strategy and
// returns the winning document. For ResolutionManual the caller provides
// the final document via explicit. A winner that still needs pushing is
// re-queued as an update.
func (c *Coordinator) ResolveConflict(ctx context.Context, conflictID string, strategy models.ResolutionStrategy, explicit *models.Document) (*models.Document, error) {
	conf, err := c.repos.Conflicts.GetByID(ctx, conflictID)
	if err != nil {
		return nil, err
	}

	resolved, err := c.resolver.Resolve(conf, strategy, explicit)
	if err != nil {
		return nil, err
	}

	if err := c.repos.Conflicts.MarkResolved(ctx, conflictID, strategy, *conf.ResolvedAt); err != nil {
		return nil, err
	}

	if err := c.repos.Documents.Save(ctx, resolved); err != nil {
		return nil, fmt.Errorf("persist resolved document: %w", err)
	}
	c.emit(models.EventStateChanged, resolved.SyncID, string(resolved.SyncState))

	if resolved.SyncState == models.StatePendingUpload {
		// the resolved snapshot's version jumped past both sides, so the
		// push must expect the version the server is known to hold
		op := &models.SyncOperation{
			ID:              uuid.NewString(),
			DocumentSyncID:  resolved.SyncID,
			Kind:            models.OpUpdate,
			QueuedAt:        c.now().UTC(),
			ExpectedVersion: conf.Remote.Version,
			Payload:         resolved.Clone(),
		}
		if _, err := c.repos.Queue.Enqueue(ctx, op); err != nil {
			return nil, fmt.Errorf("queue resolved document: %w", err)
		}
		c.TriggerSync()
	}

	c.log.Info(ctx, "conflict resolved", "conflict_id", conflictID, "strategy", strategy)
	return resolved, nil
}

// AutoResolveAll settles every open conflict using the recency heuristic: a
// side newer by more than the configured threshold wins, close calls merge.
func (c *Coordinator) AutoResolveAll(ctx context.Context) (int, error) {
	open, err := c.repos.Conflicts.ListUnresolved(ctx)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, conf := range open {
		strategy := c.resolver.AutoStrategy(conf)
		if _, err := c.ResolveConflict(ctx, conf.ID, strategy, nil); err != nil {
			c.log.Error(ctx, "auto-resolution failed", "conflict_id", conf.ID, "error", err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

// RecoveryReport buckets everything not currently synced by what it takes
// to recover it.
func (c *Coordinator) RecoveryReport(ctx context.Context) (*retry.Report, error) {
	return retry.BuildReport(ctx, c.now().UTC(), c.repos.Queue, c.repos.Conflicts, c.repos.Documents)
}

// ClearPermanentError puts a permanently errored document back into the
// sync pipeline. This is the only way out of the permanent error state.
func (c *Coordinator) ClearPermanentError(ctx context.Context, syncID string) error {
	doc, err := c.repos.Documents.GetBySyncID(ctx, syncID)
	if err != nil {
		return err
	}
	if doc.SyncState != models.StatePermanentError {
		return fmt.Errorf("%w: document %s is not permanently errored", common.ErrValidation, syncID)
	}

	next := models.StatePendingUpload
	if doc.Deleted {
		next = models.StatePendingDeletion
	}
	if err := c.repos.Documents.SetState(ctx, syncID, next); err != nil {
		return err
	}
	doc.SyncState = next

	kind := models.OpUpdate
	if doc.Deleted {
		kind = models.OpDelete
	}
	op := &models.SyncOperation{
		ID:             uuid.NewString(),
		DocumentSyncID: syncID,
		Kind:           kind,
		QueuedAt:       c.now().UTC(),
		Payload:        doc.Clone(),
	}
	if _, err := c.repos.Queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("re-queue cleared document: %w", err)
	}

	c.emit(models.EventStateChanged, syncID, string(next))
	c.TriggerSync()
	return nil
}

// Conflicts returns the open conflicts, oldest first.
func (c *Coordinator) Conflicts(ctx context.Context) ([]*models.Conflict, error) {
	return c.repos.Conflicts.ListUnresolved(ctx)
}
