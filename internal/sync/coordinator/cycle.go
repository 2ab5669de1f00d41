package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/remote"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/match"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/retry"
)

// runCycle executes one full sync cycle: drain the queue, then pull remote
// changes unless this cycle uploaded anything. Only one cycle runs at a
// time; a trigger arriving mid-cycle is deferred to the next one.
func (c *Coordinator) runCycle(ctx context.Context, reason string) {
	if !c.setSyncing(true) {
		c.TriggerSync()
		return
	}
	defer c.setSyncing(false)

	if !c.watcher.Online(ctx) {
		c.log.Debug(ctx, "offline, deferring sync", "reason", reason)
		return
	}

	c.emit(models.EventStarted, "", reason)
	c.log.Info(ctx, "sync cycle started", "reason", reason)

	userID, err := c.currentUser(ctx)
	if err != nil {
		c.log.Error(ctx, "cannot establish identity", "error", err)
		c.emit(models.EventFailed, "", "authentication failed")
		return
	}

	uploads, err := c.drainQueue(ctx, userID)
	if err != nil {
		c.log.Error(ctx, "queue drain failed", "error", err)
		c.emit(models.EventFailed, "", err.Error())
		return
	}

	queuedByTransfer, err := c.transferAttachments(ctx)
	if err != nil {
		c.log.Warn(ctx, "attachment transfer incomplete", "error", err)
	}
	uploads += queuedByTransfer

	// Pulling right after an upload would re-download what was just
	// pushed, so a cycle with uploads defers the pull to the next one.
	// Genuinely concurrent remote edits become visible one cycle later.
	if uploads == 0 {
		if err := c.pull(ctx, userID); err != nil {
			c.log.Error(ctx, "pull failed", "error", err)
			c.emit(models.EventFailed, "", err.Error())
			return
		}
	} else {
		c.log.Debug(ctx, "skipping pull after uploads", "uploads", uploads)
	}

	if _, err := c.tracker.Purge(ctx); err != nil {
		c.log.Warn(ctx, "tombstone purge failed", "error", err)
	}

	c.markSynced()
	c.emit(models.EventCompleted, "", reason)
	c.log.Info(ctx, "sync cycle completed", "uploads", uploads)
}

// currentUser resolves the user, refreshing credentials once on failure.
func (c *Coordinator) currentUser(ctx context.Context) (string, error) {
	userID, err := c.identity.UserID(ctx)
	if err == nil {
		return userID, nil
	}
	if refreshErr := c.identity.Refresh(ctx); refreshErr != nil {
		return "", fmt.Errorf("token refresh: %w", refreshErr)
	}
	return c.identity.UserID(ctx)
}

// drainQueue processes every due operation and returns how many pushed a
// document to the remote service.
func (c *Coordinator) drainQueue(ctx context.Context, userID string) (int, error) {
	ops, err := c.repos.Queue.Due(ctx, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("list due operations: %w", err)
	}

	uploads := 0
	for _, op := range ops {
		if ctx.Err() != nil {
			break
		}
		pushed, err := c.processOperation(ctx, userID, op)
		if err != nil {
			c.handleFailure(ctx, op, err)
			continue
		}
		if pushed {
			uploads++
		}
	}
	return uploads, nil
}

// processOperation executes one queue entry. It returns whether a document
// was successfully pushed. Errors are returned for failure handling; a
// version conflict is not an error here, it is routed to the conflict store
// and the operation is retired.
func (c *Coordinator) processOperation(ctx context.Context, userID string, op *models.SyncOperation) (bool, error) {
	doc := op.Payload
	if doc == nil {
		var err error
		doc, err = c.repos.Documents.GetBySyncID(ctx, op.DocumentSyncID)
		if err != nil {
			_ = c.repos.Queue.Remove(ctx, op.ID)
			return false, fmt.Errorf("operation %s has no payload and no stored document: %w", op.ID, err)
		}
	}
	doc.UserID = userID

	switch op.Kind {
	case models.OpUpload:
		return c.pushCreate(ctx, op, doc)
	case models.OpUpdate:
		return c.pushUpdate(ctx, op, doc)
	case models.OpDelete:
		return c.pushDelete(ctx, op, doc)
	default:
		_ = c.repos.Queue.Remove(ctx, op.ID)
		return false, fmt.Errorf("%w: unknown operation kind %q", common.ErrValidation, op.Kind)
	}
}

func (c *Coordinator) pushCreate(ctx context.Context, op *models.SyncOperation, doc *models.Document) (bool, error) {
	if err := c.repos.Documents.SetState(ctx, doc.SyncID, models.StateUploading); err != nil {
		return false, err
	}

	created, err := c.createRemote(ctx, doc)
	if err != nil {
		return false, err
	}

	if err := c.repos.Documents.Save(ctx, created); err != nil {
		return false, fmt.Errorf("store uploaded document: %w", err)
	}
	if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
		return false, err
	}
	c.emit(models.EventDocumentUploaded, created.SyncID, "")
	return true, nil
}

// createRemote creates the document remotely. An identifier collision gets
// one retry under a freshly generated identifier; the local copy is re-keyed
// to match.
func (c *Coordinator) createRemote(ctx context.Context, doc *models.Document) (*models.Document, error) {
	created, err := c.remote.Create(ctx, doc)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, common.ErrDuplicateIdentity) {
		return nil, err
	}

	oldID := doc.SyncID
	fresh := doc.Clone()
	fresh.SyncID = uuid.NewString()
	created, err = c.remote.Create(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("create after identifier collision: %w", err)
	}
	c.log.Warn(ctx, "sync identifier collision, regenerated",
		"old_sync_id", oldID, "new_sync_id", created.SyncID)

	if delErr := c.repos.Documents.Delete(ctx, oldID); delErr != nil && !errors.Is(delErr, common.ErrNotFound) {
		c.log.Warn(ctx, "stale local row left behind after re-keying", "sync_id", oldID, "error", delErr)
	}
	return created, nil
}

func (c *Coordinator) pushUpdate(ctx context.Context, op *models.SyncOperation, doc *models.Document) (bool, error) {
	if err := c.repos.Documents.SetState(ctx, doc.SyncID, models.StateUploading); err != nil {
		return false, err
	}

	// An ordinary edit expects its own stored version and targets the next
	// one. A resolved conflict carries the server version it was resolved
	// against, with the payload's version already past it.
	payload := doc.Clone()
	expected := op.ExpectedVersion
	if expected == 0 {
		expected = doc.Version
		payload.Version = expected + 1
	}

	res := c.remote.Update(ctx, payload, expected)
	switch {
	case res.Ok():
		if err := c.repos.Documents.Save(ctx, res.Doc); err != nil {
			return false, fmt.Errorf("store updated document: %w", err)
		}
		if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
			return false, err
		}
		c.emit(models.EventDocumentUploaded, doc.SyncID, "")
		return true, nil

	case res.Conflicted():
		// this entry is done either way: recordConflict re-queues the local
		// copy itself when it is still the authoritative side
		if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
			return false, err
		}
		if err := c.recordConflict(ctx, doc, res.ServerDoc); err != nil {
			return false, err
		}
		return false, nil

	default:
		return false, res.Err
	}
}

func (c *Coordinator) pushDelete(ctx context.Context, op *models.SyncOperation, doc *models.Document) (bool, error) {
	if err := c.repos.Documents.SetState(ctx, doc.SyncID, models.StateUploading); err != nil {
		return false, err
	}

	payload := doc.Clone()
	payload.Version = doc.Version + 1
	res := c.remote.Update(ctx, payload, doc.Version)
	switch {
	case res.Ok():
		// remote knows it is deleted; drop the local row
		if err := c.repos.Documents.Delete(ctx, doc.SyncID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return false, err
		}
		c.dropAttachments(ctx, doc.SyncID)
		if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
			return false, err
		}
		c.emit(models.EventDocumentUploaded, doc.SyncID, "deletion pushed")
		return true, nil

	case res.Conflicted():
		if res.ServerDoc.Version > doc.Version && !res.ServerDoc.Deleted {
			// someone edited what we deleted: surface it
			if err := c.recordConflict(ctx, doc, res.ServerDoc); err != nil {
				return false, err
			}
			if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
				return false, err
			}
			return false, nil
		}
		// server copy is already deleted or older; push on top of its version
		retryDoc := doc.Clone()
		retryDoc.Version = res.ServerDoc.Version + 1
		res = c.remote.Update(ctx, retryDoc, res.ServerDoc.Version)
		if !res.Ok() {
			if res.Err != nil {
				return false, res.Err
			}
			return false, common.ErrVersionConflict
		}
		if err := c.repos.Documents.Delete(ctx, doc.SyncID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return false, err
		}
		c.dropAttachments(ctx, doc.SyncID)
		if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
			return false, err
		}
		c.emit(models.EventDocumentUploaded, doc.SyncID, "deletion pushed")
		return true, nil

	default:
		if errors.Is(remote.MapRPCError(res.Err), common.ErrNotFound) {
			// already gone remotely: the deletion is effectively done
			if err := c.repos.Documents.Delete(ctx, doc.SyncID); err != nil && !errors.Is(err, common.ErrNotFound) {
				return false, err
			}
			c.dropAttachments(ctx, doc.SyncID)
			if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, res.Err
	}
}

// recordConflict persists a detected divergence and parks the document in
// the conflict state until a resolution is chosen.
func (c *Coordinator) recordConflict(ctx context.Context, local, remoteDoc *models.Document) error {
	conf := c.detector.Detect(local, remoteDoc)
	if conf == nil {
		// CAS failed but the snapshots do not diverge: the side strictly
		// newer by version is authoritative
		if remoteDoc.Version >= local.Version {
			applied := remoteDoc.Clone()
			applied.SyncState = models.StateSynced
			if err := c.repos.Documents.Save(ctx, applied); err != nil {
				return fmt.Errorf("apply authoritative remote copy: %w", err)
			}
			c.emit(models.EventDocumentDownloaded, applied.SyncID, "")
			return nil
		}
		// local copy carries a resolution or edit past the server's version:
		// re-push it against the version the server actually holds
		op := &models.SyncOperation{
			ID:              uuid.NewString(),
			DocumentSyncID:  local.SyncID,
			Kind:            models.OpUpdate,
			QueuedAt:        c.now().UTC(),
			ExpectedVersion: remoteDoc.Version,
			Payload:         local.Clone(),
		}
		if _, err := c.repos.Queue.Enqueue(ctx, op); err != nil {
			return fmt.Errorf("re-queue local copy: %w", err)
		}
		if stored, err := c.repos.Documents.GetBySyncID(ctx, local.SyncID); err == nil {
			stored.SyncState = models.StatePendingUpload
			if err := c.repos.Documents.Save(ctx, stored); err != nil {
				return fmt.Errorf("mark document pending: %w", err)
			}
			c.emit(models.EventStateChanged, stored.SyncID, string(stored.SyncState))
		}
		c.TriggerSync()
		return nil
	}

	err := c.repos.Conflicts.Create(ctx, conf)
	if errors.Is(err, common.ErrUnresolvedConflictExists) {
		c.log.Debug(ctx, "conflict already recorded", "sync_id", local.SyncID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record conflict: %w", err)
	}

	stored, err := c.repos.Documents.GetBySyncID(ctx, local.SyncID)
	if err == nil {
		stored.SyncState = models.StateConflict
		stored.ConflictID = conf.ID
		if err := c.repos.Documents.Save(ctx, stored); err != nil {
			return fmt.Errorf("mark document conflicted: %w", err)
		}
	}

	c.emit(models.EventConflictDetected, local.SyncID, string(conf.Type))
	c.log.Warn(ctx, "conflict detected", "sync_id", local.SyncID, "type", conf.Type)
	return nil
}

// handleFailure classifies a failed operation and either reschedules it with
// backoff or retires it as permanently failed.
func (c *Coordinator) handleFailure(ctx context.Context, op *models.SyncOperation, opErr error) {
	class := retry.Classify(opErr)
	c.log.Warn(ctx, "operation failed", "sync_id", op.DocumentSyncID, "kind", op.Kind,
		"class", class, "retry_count", op.RetryCount, "error", opErr)

	if class == retry.ClassConflict {
		// never blindly retried: fetch the server copy and route to
		// conflict resolution
		remoteDoc, getErr := c.remote.Get(ctx, op.DocumentSyncID)
		if getErr == nil && op.Payload != nil {
			if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
				c.log.Error(ctx, "remove conflicted operation", "sync_id", op.DocumentSyncID, "error", err)
			}
			if err := c.recordConflict(ctx, op.Payload, remoteDoc); err == nil {
				return
			}
		}
		c.retireOperation(ctx, op, opErr)
		return
	}

	if class == retry.ClassAuth {
		if refreshErr := c.identity.Refresh(ctx); refreshErr != nil {
			c.log.Error(ctx, "token refresh failed", "error", refreshErr)
			c.retireOperation(ctx, op, opErr)
			return
		}
	}

	if !class.Retryable() {
		c.retireOperation(ctx, op, opErr)
		return
	}

	newCount := op.RetryCount + 1
	if c.scheduler.Exhausted(newCount) {
		c.retireOperation(ctx, op, opErr)
		return
	}

	next := c.scheduler.NextEligible(newCount)
	if err := c.repos.Queue.BumpRetry(ctx, op.ID, next, opErr.Error()); err != nil {
		c.log.Error(ctx, "reschedule failed", "sync_id", op.DocumentSyncID, "error", err)
	}
	c.setDocState(ctx, op.DocumentSyncID, models.StateError)
	c.emit(models.EventFailed, op.DocumentSyncID, opErr.Error())
}

// retireOperation removes the operation from automatic retry and marks the
// document permanently errored. It stays visible in the recovery report
// until the caller clears it.
func (c *Coordinator) retireOperation(ctx context.Context, op *models.SyncOperation, opErr error) {
	c.setDocState(ctx, op.DocumentSyncID, models.StateError)
	c.setDocState(ctx, op.DocumentSyncID, models.StatePermanentError)
	if err := c.repos.Queue.Remove(ctx, op.ID); err != nil {
		c.log.Error(ctx, "remove retired operation", "sync_id", op.DocumentSyncID, "error", err)
	}
	c.emit(models.EventFailed, op.DocumentSyncID, fmt.Sprintf("permanent failure: %v", opErr))
	c.log.Error(ctx, "operation permanently failed", "sync_id", op.DocumentSyncID, "error", opErr)
}

func (c *Coordinator) setDocState(ctx context.Context, syncID string, state models.SyncState) {
	err := c.repos.Documents.SetState(ctx, syncID, state)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		c.log.Warn(ctx, "state transition rejected", "sync_id", syncID, "to", state, "error", err)
		return
	}
	if err == nil {
		c.emit(models.EventStateChanged, syncID, string(state))
	}
}

// pull applies remote changes locally. Tombstoned identifiers are discarded
// before anything touches the local store; documents with local pending
// work go through conflict detection instead of being overwritten.
func (c *Coordinator) pull(ctx context.Context, userID string) error {
	remoteDocs, err := c.remote.List(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("list remote documents: %w", err)
	}

	if err := match.ValidateUniqueIdentities(remoteDocs); err != nil {
		c.log.Warn(ctx, "remote list carries duplicate identities", "error", err)
	}

	kept, err := c.tracker.FilterIncoming(ctx, remoteDocs)
	if err != nil {
		return fmt.Errorf("tombstone filtering: %w", err)
	}

	for _, rd := range kept {
		if ctx.Err() != nil {
			break
		}
		if err := c.applyRemote(ctx, rd); err != nil {
			c.log.Error(ctx, "apply remote document", "sync_id", rd.SyncID, "error", err)
		}
	}
	return nil
}

func (c *Coordinator) applyRemote(ctx context.Context, rd *models.Document) error {
	local, err := c.repos.Documents.GetBySyncID(ctx, rd.SyncID)
	if errors.Is(err, common.ErrNotFound) {
		if rd.Deleted {
			return nil
		}
		fresh := rd.Clone()
		fresh.SyncState = models.StateSynced
		if err := c.repos.Documents.Save(ctx, fresh); err != nil {
			return err
		}
		c.registerIncomingAttachments(ctx, fresh)
		c.emit(models.EventDocumentDownloaded, rd.SyncID, "")
		return nil
	}
	if err != nil {
		return err
	}

	if hasPendingWork(local.SyncState) {
		if conf := c.detector.Detect(local, rd); conf != nil {
			return c.recordConflict(ctx, local, rd)
		}
		return nil
	}

	if rd.Deleted {
		// deletion made on another device: honor it here
		if err := c.tracker.TrackDeletion(ctx, local, "remote", "deleted on another device"); err != nil {
			return err
		}
		if err := c.repos.Documents.Delete(ctx, local.SyncID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		c.dropAttachments(ctx, local.SyncID)
		c.emit(models.EventStateChanged, local.SyncID, string(models.StatePendingDeletion))
		return nil
	}

	if rd.Version > local.Version {
		updated := rd.Clone()
		updated.SyncState = models.StateSynced
		if err := c.repos.Documents.Save(ctx, updated); err != nil {
			return err
		}
		c.registerIncomingAttachments(ctx, updated)
		c.emit(models.EventDocumentDownloaded, rd.SyncID, "")
	}
	return nil
}

// hasPendingWork reports whether the local copy carries changes that have
// not reached the remote yet.
func hasPendingWork(s models.SyncState) bool {
	switch s {
	case models.StatePendingUpload, models.StateUploading,
		models.StatePendingDeletion, models.StateConflict, models.StateError:
		return true
	}
	return false
}
