package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const attColumns = `sync_id, document_sync_id, file_name, blob_key, local_ref, file_size, checksum, sync_state`

func (r *SQLiteRepository) Save(ctx context.Context, att *models.FileAttachment) error {
	if _, err := att.TransferStatus(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	query := `INSERT INTO attachments (` + attColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sync_id) DO UPDATE SET
			blob_key = excluded.blob_key,
			local_ref = excluded.local_ref,
			file_size = excluded.file_size,
			checksum = excluded.checksum,
			sync_state = excluded.sync_state
	`
	_, err := r.db.ExecContext(ctx, query,
		att.SyncID, att.DocumentSyncID, att.FileName, att.BlobKey, att.LocalRef,
		att.FileSize, att.Checksum, string(att.SyncState))
	if err != nil {
		return fmt.Errorf("failed to upsert attachment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBySyncID(ctx context.Context, syncID string) (*models.FileAttachment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attColumns+` FROM attachments WHERE sync_id = ?`, syncID)
	att, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", syncID, err)
	}
	return att, nil
}

func (r *SQLiteRepository) ListByDocument(ctx context.Context, documentSyncID string) ([]*models.FileAttachment, error) {
	return r.list(ctx, `SELECT `+attColumns+` FROM attachments WHERE document_sync_id = ?`, documentSyncID)
}

// ListByStatus selects on the stored columns that determine the derived
// status, so the filter happens in SQL rather than in memory.
func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.AttachmentStatus) ([]*models.FileAttachment, error) {
	var cond string
	switch status {
	case models.AttachmentNeedsUpload:
		cond = `blob_key = '' AND local_ref != ''`
	case models.AttachmentNeedsDownload:
		cond = `blob_key != '' AND local_ref = ''`
	case models.AttachmentSynced:
		cond = `blob_key != '' AND local_ref != ''`
	default:
		return nil, fmt.Errorf("%w: unknown attachment status %q", common.ErrValidation, status)
	}
	return r.list(ctx, `SELECT `+attColumns+` FROM attachments WHERE `+cond)
}

func (r *SQLiteRepository) Delete(ctx context.Context, syncID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE sync_id = ?`, syncID)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.FileAttachment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	var result []*models.FileAttachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttachment(s scanner) (*models.FileAttachment, error) {
	var att models.FileAttachment
	var state string
	err := s.Scan(&att.SyncID, &att.DocumentSyncID, &att.FileName, &att.BlobKey,
		&att.LocalRef, &att.FileSize, &att.Checksum, &state)
	if err != nil {
		return nil, err
	}
	att.SyncState = models.SyncState(state)
	return &att, nil
}
