package tombstones

import (
	"context"
	"database/sql"
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

// Create inserts a tombstone, skipping silently when one already exists.
// Existing rows are never modified: the first deletion record wins.
func (r *SQLiteRepository) Create(ctx context.Context, ts *models.Tombstone) (bool, error) {
	if ts.SyncID == "" {
		return false, common.ErrMissingSyncID
	}
	query := `INSERT INTO tombstones (sync_id, user_id, deleted_by, deleted_at, reason)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sync_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		ts.SyncID, ts.UserID, ts.DeletedBy, ts.DeletedAt.UTC().Format(time.RFC3339Nano), ts.Reason)
	if err != nil {
		return false, fmt.Errorf("failed to insert tombstone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, syncID string) (*models.Tombstone, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT sync_id, user_id, deleted_by, deleted_at, reason FROM tombstones WHERE sync_id = ?`, syncID)

	ts, err := scanTombstone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tombstone %s: %w", syncID, err)
	}
	return ts, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, syncID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tombstones WHERE sync_id = ?`, syncID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check tombstone: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]*models.Tombstone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sync_id, user_id, deleted_by, deleted_at, reason FROM tombstones WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	var result []*models.Tombstone
	for rows.Next() {
		ts, err := scanTombstone(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tombstones WHERE deleted_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstones: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTombstone(s scanner) (*models.Tombstone, error) {
	var ts models.Tombstone
	var deletedAt string
	if err := s.Scan(&ts.SyncID, &ts.UserID, &ts.DeletedBy, &deletedAt, &ts.Reason); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored time %q: %w", deletedAt, err)
	}
	ts.DeletedAt = t
	return &ts, nil
}
