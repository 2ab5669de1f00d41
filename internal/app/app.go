// Package app initializes and runs the document sync daemon. It wires the
// local store, the remote document service, blob transfer and the sync
// coordinator, and handles graceful shutdown on OS signals.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/philipmoss2002/life-app-sub008/internal/auth"
	"github.com/philipmoss2002/life-app-sub008/internal/blob"
	"github.com/philipmoss2002/life-app-sub008/internal/config"
	"github.com/philipmoss2002/life-app-sub008/internal/logging"
	"github.com/philipmoss2002/life-app-sub008/internal/remote"
	"github.com/philipmoss2002/life-app-sub008/internal/store"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/coordinator"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       *store.Repositories
	remoteDB    *sql.DB
	coordinator *coordinator.Coordinator
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	repos, err := store.InitDatabase(ctx, cfg.LocalDBDSN)
	if err != nil {
		return nil, fmt.Errorf("local db init error: %w", err)
	}

	remoteDB, err := remote.OpenPostgres(ctx, cfg.RemoteDBDSN)
	if err != nil {
		return nil, fmt.Errorf("remote db init error: %w", err)
	}
	if err := remote.RunMigrations(ctx, remoteDB); err != nil {
		return nil, fmt.Errorf("remote db migration error: %w", err)
	}
	svc := remote.NewPostgresService(remoteDB)

	identity := auth.NewJWTProvider(cfg.AuthToken, []byte(cfg.SecretKey), nil)

	var blobs blob.Store
	var transfer blob.Transferrer
	if cfg.S3Bucket != "" {
		blobs = blob.NewS3Store(cfg)
		transfer = &blob.HTTPTransferrer{}
	}

	coord := coordinator.New(cfg, logger, repos, svc, blobs, transfer, identity)

	return &App{
		config:      cfg,
		logger:      logger,
		repos:       repos,
		remoteDB:    remoteDB,
		coordinator: coord,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "starting sync daemon")

	app.initSignalHandler(cancelFunc)

	app.coordinator.Start(ctx)
	app.coordinator.TriggerSync()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range app.coordinator.Events() {
			app.logger.Debug(ctx, "sync event",
				"type", ev.Type, "sync_id", ev.DocumentSyncID, "message", ev.Message)
		}
	}()

	<-ctx.Done()

	app.coordinator.Stop()
	wg.Wait()

	if err := app.repos.DB.Close(); err != nil {
		app.logger.Warn(ctx, "closing local db", "error", err)
	}
	if err := app.remoteDB.Close(); err != nil {
		app.logger.Warn(ctx, "closing remote db", "error", err)
	}

	app.logger.Info(ctx, "sync daemon stopped")
}
