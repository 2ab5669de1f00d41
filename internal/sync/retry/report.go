package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/store/conflicts"
	"github.com/philipmoss2002/life-app-sub008/internal/store/documents"
	"github.com/philipmoss2002/life-app-sub008/internal/store/queue"
)

// Report buckets everything that is not synced by what it takes to recover
// it. Nothing is silently dropped: a failed document appears here until it
// succeeds or the caller clears it.
type Report struct {
	// Immediate operations are eligible to run right now.
	Immediate []*models.SyncOperation `json:"immediate"`
	// Delayed operations are waiting out their backoff.
	Delayed []*models.SyncOperation `json:"delayed"`
	// Manual conflicts need user input to resolve.
	Manual []*models.Conflict `json:"manual"`
	// Unrecoverable documents exhausted their retry budget or failed with a
	// non-retryable class.
	Unrecoverable []*models.Document `json:"unrecoverable"`
}

// BuildReport assembles a recovery report from the queue, the open conflicts
// and the permanently errored documents, as of now.
func BuildReport(ctx context.Context, now time.Time,
	q queue.Repository, c conflicts.Repository, d documents.Repository) (*Report, error) {

	due, err := q.Due(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due operations: %w", err)
	}
	all, err := q.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list queued operations: %w", err)
	}

	dueIDs := make(map[string]struct{}, len(due))
	for _, op := range due {
		dueIDs[op.ID] = struct{}{}
	}
	var delayed []*models.SyncOperation
	for _, op := range all {
		if _, ok := dueIDs[op.ID]; !ok {
			delayed = append(delayed, op)
		}
	}

	manual, err := c.ListUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unresolved conflicts: %w", err)
	}

	unrecoverable, err := d.ListByState(ctx, models.StatePermanentError)
	if err != nil {
		return nil, fmt.Errorf("list permanently errored documents: %w", err)
	}

	return &Report{
		Immediate:     due,
		Delayed:       delayed,
		Manual:        manual,
		Unrecoverable: unrecoverable,
	}, nil
}
