package documents

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

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const docColumns = `sync_id, user_id, title, category, notes, attachment_refs, renewal_date,
	version, created_at, last_modified, sync_state, conflict_id, deleted, deleted_at`

// Save upserts a document by sync_id. Documents without a sync identifier
// are inserted as new rows (they only exist locally).
func (r *SQLiteRepository) Save(ctx context.Context, doc *models.Document) error {
	if err := doc.CheckInvariants(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	refs, err := json.Marshal(doc.AttachmentRefs)
	if err != nil {
		return fmt.Errorf("failed to encode attachment refs: %w", err)
	}

	query := `INSERT INTO documents (` + docColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sync_id) WHERE sync_id != '' DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			category = excluded.category,
			notes = excluded.notes,
			attachment_refs = excluded.attachment_refs,
			renewal_date = excluded.renewal_date,
			version = excluded.version,
			last_modified = excluded.last_modified,
			sync_state = excluded.sync_state,
			conflict_id = excluded.conflict_id,
			deleted = excluded.deleted,
			deleted_at = excluded.deleted_at
	`
	_, err = r.db.ExecContext(ctx, query,
		doc.SyncID, doc.UserID, doc.Title, doc.Category, doc.Notes, string(refs),
		encodeTimePtr(doc.RenewalDate), doc.Version,
		encodeTime(doc.CreatedAt), encodeTime(doc.LastModified),
		string(doc.SyncState), doc.ConflictID, doc.Deleted, encodeTimePtr(doc.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBySyncID(ctx context.Context, syncID string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE sync_id = ? AND sync_id != ''`, syncID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", syncID, err)
	}
	return doc, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	return r.list(ctx, `SELECT `+docColumns+` FROM documents WHERE user_id = ?`, userID)
}

func (r *SQLiteRepository) ListByState(ctx context.Context, state models.SyncState) ([]*models.Document, error) {
	return r.list(ctx, `SELECT `+docColumns+` FROM documents WHERE sync_state = ?`, string(state))
}

func (r *SQLiteRepository) ListWithoutIdentity(ctx context.Context) ([]*models.Document, error) {
	return r.list(ctx, `SELECT `+docColumns+` FROM documents WHERE sync_id = ''`)
}

// SetState transitions the stored sync state, enforcing the legal
// transition table inside a transaction-free compare step: the document is
// read, the transition checked, then written conditionally on the old state.
func (r *SQLiteRepository) SetState(ctx context.Context, syncID string, state models.SyncState) error {
	doc, err := r.GetBySyncID(ctx, syncID)
	if err != nil {
		return err
	}
	if !models.CanTransition(doc.SyncState, state) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidStateTransition, doc.SyncState, state)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET sync_state = ? WHERE sync_id = ? AND sync_state = ?`,
		string(state), syncID, string(doc.SyncState))
	if err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		// lost the race against a concurrent state change
		return fmt.Errorf("%w: state changed concurrently for %s", common.ErrInvalidStateTransition, syncID)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, syncID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE sync_id = ?`, syncID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
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

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var (
		doc         models.Document
		refs        string
		renewal     sql.NullString
		createdAt   string
		lastMod     string
		state       string
		deletedAt   sql.NullString
	)
	err := s.Scan(&doc.SyncID, &doc.UserID, &doc.Title, &doc.Category, &doc.Notes,
		&refs, &renewal, &doc.Version, &createdAt, &lastMod, &state,
		&doc.ConflictID, &doc.Deleted, &deletedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(refs), &doc.AttachmentRefs); err != nil {
		return nil, fmt.Errorf("failed to decode attachment refs: %w", err)
	}
	doc.SyncState = models.SyncState(state)

	if doc.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if doc.LastModified, err = decodeTime(lastMod); err != nil {
		return nil, err
	}
	if doc.RenewalDate, err = decodeTimePtr(renewal); err != nil {
		return nil, err
	}
	if doc.DeletedAt, err = decodeTimePtr(deletedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t, nil
}

func decodeTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := decodeTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
