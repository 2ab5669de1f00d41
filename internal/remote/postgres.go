package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/dbx"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/remote/migrations"
)

const pgUniqueViolation = "23505"

// PostgresService implements Service over a dbx.DBTX (*sql.DB or *sql.Tx).
// It is the reference server implementation used in integration setups and
// as the behavioral model the engine is tested against.
type PostgresService struct {
	db dbx.DBTX
}

// NewPostgresService constructs a service bound to the given DBTX.
func NewPostgresService(db dbx.DBTX) *PostgresService {
	return &PostgresService{db: db}
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Create stores a new document. An empty sync identifier is assigned by the
// server; a taken one yields common.ErrDuplicateIdentity so the caller can
// regenerate and retry.
func (s *PostgresService) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	stored := doc.Clone()
	if stored.SyncID == "" {
		stored.SyncID = uuid.NewString()
	}
	if stored.Version < 1 {
		stored.Version = 1
	}
	refs, err := json.Marshal(stored.AttachmentRefs)
	if err != nil {
		return nil, fmt.Errorf("encode attachment refs: %w", err)
	}
	query := `
		INSERT INTO documents
			(sync_id, user_id, title, category, notes, attachment_refs, renewal_date,
			 version, created_at, last_modified, deleted, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		stored.SyncID, stored.UserID, stored.Title, stored.Category, stored.Notes,
		refs, stored.RenewalDate, stored.Version, stored.CreatedAt, stored.LastModified,
		stored.Deleted, stored.DeletedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	stored.SyncState = models.StateSynced
	return stored, nil
}

// Update applies a compare-and-swap write: the row is only updated when the
// stored version equals expectedVersion. The payload's version is stored as
// is and must move forward. On a mismatch the server's current copy is
// returned in the result and nothing is overwritten.
func (s *PostgresService) Update(ctx context.Context, doc *models.Document, expectedVersion int64) UpdateResult {
	if doc.Version <= expectedVersion {
		return UpdateFailed(fmt.Errorf("%w: version %d does not advance past %d",
			common.ErrValidation, doc.Version, expectedVersion))
	}
	refs, err := json.Marshal(doc.AttachmentRefs)
	if err != nil {
		return UpdateFailed(fmt.Errorf("encode attachment refs: %w", err))
	}
	query := `
		UPDATE documents
		SET title = $1, category = $2, notes = $3, attachment_refs = $4,
			renewal_date = $5, version = $6, last_modified = $7,
			deleted = $8, deleted_at = $9
		WHERE sync_id = $10 AND version = $11
	`
	res, err := s.db.ExecContext(ctx, query,
		doc.Title, doc.Category, doc.Notes, refs, doc.RenewalDate,
		doc.Version, doc.LastModified, doc.Deleted, doc.DeletedAt,
		doc.SyncID, expectedVersion)
	if err != nil {
		return UpdateFailed(fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return UpdateFailed(fmt.Errorf("rows affected error: %w", err))
	}
	if n == 1 {
		updated := doc.Clone()
		updated.SyncState = models.StateSynced
		return UpdateOK(updated)
	}
	current, err := s.Get(ctx, doc.SyncID)
	if err != nil {
		return UpdateFailed(err)
	}
	return UpdateConflict(current)
}

// Get returns the document with the given sync identifier.
func (s *PostgresService) Get(ctx context.Context, syncID string) (*models.Document, error) {
	query := `
		SELECT sync_id, user_id, title, category, notes, attachment_refs, renewal_date,
			   version, created_at, last_modified, deleted, deleted_at
		FROM documents WHERE sync_id = $1
	`
	row := s.db.QueryRowContext(ctx, query, syncID)
	doc, err := scanRemoteDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

// List returns the user's documents ordered by last modification, newest
// first. With excludeDeleted set, deleted documents are filtered out.
func (s *PostgresService) List(ctx context.Context, userID string, excludeDeleted bool) ([]*models.Document, error) {
	query := `
		SELECT sync_id, user_id, title, category, notes, attachment_refs, renewal_date,
			   version, created_at, last_modified, deleted, deleted_at
		FROM documents WHERE user_id = $1
	`
	if excludeDeleted {
		query += ` AND deleted = false`
	}
	query += ` ORDER BY last_modified DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc, err := scanRemoteDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Ping probes the backing database.
func (s *PostgresService) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return common.ErrUnavailable
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRemoteDocument(row rowScanner) (*models.Document, error) {
	var (
		doc         models.Document
		refs        []byte
		renewalDate sql.NullTime
		deletedAt   sql.NullTime
	)
	err := row.Scan(&doc.SyncID, &doc.UserID, &doc.Title, &doc.Category, &doc.Notes,
		&refs, &renewalDate, &doc.Version, &doc.CreatedAt, &doc.LastModified,
		&doc.Deleted, &deletedAt)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &doc.AttachmentRefs); err != nil {
			return nil, fmt.Errorf("decode attachment refs: %w", err)
		}
	}
	if renewalDate.Valid {
		t := renewalDate.Time.UTC()
		doc.RenewalDate = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		doc.DeletedAt = &t
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.LastModified = doc.LastModified.UTC()
	doc.SyncState = models.StateSynced
	return &doc, nil
}
