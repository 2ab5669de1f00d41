package conflicts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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

const conflictColumns = `id, document_sync_id, local_snapshot, remote_snapshot, type, detected_at, resolved, resolved_at, strategy`

func (r *SQLiteRepository) Create(ctx context.Context, c *models.Conflict) error {
	local, err := json.Marshal(c.Local)
	if err != nil {
		return fmt.Errorf("failed to encode local snapshot: %w", err)
	}
	remote, err := json.Marshal(c.Remote)
	if err != nil {
		return fmt.Errorf("failed to encode remote snapshot: %w", err)
	}

	query := `INSERT INTO conflicts (id, document_sync_id, local_snapshot, remote_snapshot, type, detected_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, 0)`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.DocumentSyncID, string(local), string(remote), string(c.Type),
		c.DetectedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		// the partial unique index guards the one-open-conflict invariant
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: document %s", common.ErrUnresolvedConflictExists, c.DocumentSyncID)
		}
		return fmt.Errorf("failed to insert conflict: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Conflict, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetUnresolvedByDocument(ctx context.Context, documentSyncID string) (*models.Conflict, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE document_sync_id = ? AND resolved = 0`, documentSyncID)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open conflict for %s: %w", documentSyncID, err)
	}
	return c, nil
}

func (r *SQLiteRepository) MarkResolved(ctx context.Context, id string, strategy models.ResolutionStrategy, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conflicts SET resolved = 1, resolved_at = ?, strategy = ? WHERE id = ? AND resolved = 0`,
		at.UTC().Format(time.RFC3339Nano), string(strategy), id)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	// distinguish "missing" from "already resolved"
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return common.ErrAlreadyResolved
}

func (r *SQLiteRepository) ListUnresolved(ctx context.Context) ([]*models.Conflict, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE resolved = 0 ORDER BY detected_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflicts: %w", err)
	}
	defer rows.Close()

	var result []*models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConflict(s scanner) (*models.Conflict, error) {
	var (
		c          models.Conflict
		local      string
		remote     string
		ctype      string
		detectedAt string
		resolvedAt sql.NullString
		strategy   string
	)
	err := s.Scan(&c.ID, &c.DocumentSyncID, &local, &remote, &ctype, &detectedAt, &c.Resolved, &resolvedAt, &strategy)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(local), &c.Local); err != nil {
		return nil, fmt.Errorf("failed to decode local snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(remote), &c.Remote); err != nil {
		return nil, fmt.Errorf("failed to decode remote snapshot: %w", err)
	}
	c.Type = models.ConflictType(ctype)
	c.Strategy = models.ResolutionStrategy(strategy)

	t, err := time.Parse(time.RFC3339Nano, detectedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored time %q: %w", detectedAt, err)
	}
	c.DetectedAt = t

	if resolvedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, resolvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored time %q: %w", resolvedAt.String, err)
		}
		c.ResolvedAt = &t
	}
	return &c, nil
}
