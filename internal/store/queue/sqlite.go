package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/dbx"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const opColumns = `id, document_sync_id, kind, queued_at, retry_count, expected_version, next_eligible_at, payload`

// Enqueue upserts keyed by document_sync_id. On coalesce the original entry
// keeps its id, queue position and retry count; the payload is replaced with
// the newer snapshot, and a delete supersedes whatever kind was queued.
func (r *SQLiteRepository) Enqueue(ctx context.Context, op *models.SyncOperation) (bool, error) {
	if op.DocumentSyncID == "" {
		return false, common.ErrMissingSyncID
	}
	payload, err := json.Marshal(op.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode payload: %w", err)
	}

	existing, err := r.Get(ctx, op.DocumentSyncID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return false, err
	}
	coalesced := existing != nil

	query := `INSERT INTO sync_queue (id, document_sync_id, kind, queued_at, retry_count, expected_version, next_eligible_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_sync_id) DO UPDATE SET
			kind = CASE WHEN excluded.kind = 'delete' THEN 'delete' ELSE sync_queue.kind END,
			expected_version = excluded.expected_version,
			payload = excluded.payload
	`
	_, err = r.db.ExecContext(ctx, query,
		op.ID, op.DocumentSyncID, string(op.Kind),
		encodeTime(op.QueuedAt), op.RetryCount, op.ExpectedVersion,
		encodeTime(op.QueuedAt), string(payload))
	if err != nil {
		return false, fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return coalesced, nil
}

func (r *SQLiteRepository) Due(ctx context.Context, now time.Time) ([]*models.SyncOperation, error) {
	return r.list(ctx,
		`SELECT `+opColumns+` FROM sync_queue WHERE next_eligible_at <= ? ORDER BY queued_at`,
		encodeTime(now))
}

func (r *SQLiteRepository) Get(ctx context.Context, documentSyncID string) (*models.SyncOperation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+opColumns+` FROM sync_queue WHERE document_sync_id = ?`, documentSyncID)
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queued operation for %s: %w", documentSyncID, err)
	}
	return op, nil
}

func (r *SQLiteRepository) BumpRetry(ctx context.Context, id string, nextEligibleAt time.Time, lastError string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET retry_count = retry_count + 1, next_eligible_at = ?, last_error = ? WHERE id = ?`,
		encodeTime(nextEligibleAt), lastError, id)
	if err != nil {
		return fmt.Errorf("failed to bump retry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]*models.SyncOperation, error) {
	return r.list(ctx, `SELECT `+opColumns+` FROM sync_queue ORDER BY queued_at`)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.SyncOperation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select operations: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(s scanner) (*models.SyncOperation, error) {
	var (
		op       models.SyncOperation
		kind     string
		queuedAt string
		eligible string
		payload  string
	)
	if err := s.Scan(&op.ID, &op.DocumentSyncID, &kind, &queuedAt, &op.RetryCount, &op.ExpectedVersion, &eligible, &payload); err != nil {
		return nil, err
	}
	op.Kind = models.OperationKind(kind)

	t, err := time.Parse(time.RFC3339Nano, queuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored time %q: %w", queuedAt, err)
	}
	op.QueuedAt = t

	if payload != "null" {
		if err := json.Unmarshal([]byte(payload), &op.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
	}
	return &op, nil
}

func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
