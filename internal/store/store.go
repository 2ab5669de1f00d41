// Package store wires the local sqlite database: it runs migrations and
// hands out the repository set used by the sync engine.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/philipmoss2002/life-app-sub008/internal/migrations"
	"github.com/philipmoss2002/life-app-sub008/internal/store/attachments"
	"github.com/philipmoss2002/life-app-sub008/internal/store/conflicts"
	"github.com/philipmoss2002/life-app-sub008/internal/store/documents"
	"github.com/philipmoss2002/life-app-sub008/internal/store/queue"
	"github.com/philipmoss2002/life-app-sub008/internal/store/tombstones"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

type Repositories struct {
	Documents   documents.Repository
	Attachments attachments.Repository
	Tombstones  tombstones.Repository
	Queue       queue.Repository
	Conflicts   conflicts.Repository
	DB          *sql.DB
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the sqlite store at dsn, migrates it, and returns the
// repository set. The caller owns the returned DB handle.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	return &Repositories{
		Documents:   documents.NewSQLiteRepository(db),
		Attachments: attachments.NewSQLiteRepository(db),
		Tombstones:  tombstones.NewSQLiteRepository(db),
		Queue:       queue.NewSQLiteRepository(db),
		Conflicts:   conflicts.NewSQLiteRepository(db),
		DB:          db,
	}, nil
}
