// Package coordinator orchestrates synchronization: it owns the operation
// queue, drives pushes and pulls against the remote service, routes failures
// to conflict resolution or retry scheduling, and emits sync events.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/philipmoss2002/life-app-sub008/internal/auth"
	"github.com/philipmoss2002/life-app-sub008/internal/blob"
	"github.com/philipmoss2002/life-app-sub008/internal/config"
	"github.com/philipmoss2002/life-app-sub008/internal/logging"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/remote"
	"github.com/philipmoss2002/life-app-sub008/internal/store"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/conflict"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/deletion"
	"github.com/philipmoss2002/life-app-sub008/internal/sync/retry"
)

const eventBuffer = 64

// Coordinator is the single sync orchestrator for a local store. One
// instance runs per process; all mutations to a document's sync state flow
// through its draining path, never concurrently for the same identifier.
type Coordinator struct {
	cfg      *config.Config
	log      logging.Logger
	repos    *store.Repositories
	remote   remote.Service
	blobs    blob.Store
	transfer blob.Transferrer
	identity auth.IdentityProvider

	detector  *conflict.Detector
	resolver  *conflict.Resolver
	tracker   *deletion.Tracker
	scheduler *retry.Scheduler
	watcher   *ConnectivityWatcher
	validate  *validator.Validate

	mu       sync.Mutex
	syncing  bool
	lastSync *time.Time

	trigger chan struct{}
	events  chan models.SyncEvent
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool

	now func() time.Time
}

// New wires a coordinator from its collaborators.
func New(cfg *config.Config, log logging.Logger, repos *store.Repositories,
	svc remote.Service, blobs blob.Store, transfer blob.Transferrer,
	identity auth.IdentityProvider) *Coordinator {

	return &Coordinator{
		cfg:       cfg,
		log:       log.With("component", "coordinator"),
		repos:     repos,
		remote:    svc,
		blobs:     blobs,
		transfer:  transfer,
		identity:  identity,
		detector:  conflict.NewDetector(),
		resolver:  conflict.NewResolver(cfg.AutoResolveThreshold),
		tracker:   deletion.NewTracker(repos.Tombstones, log, cfg.TombstoneRetention),
		scheduler: retry.NewScheduler(cfg.MaxRetries, cfg.BackoffCap),
		watcher:   NewConnectivityWatcher(svc, log, cfg.ConnectivityTTL),
		validate:  validator.New(),
		trigger:   make(chan struct{}, 1),
		events:    make(chan models.SyncEvent, eventBuffer),
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// Events returns the event stream. Events are dropped, not blocked on, when
// no observer keeps up with the buffer.
func (c *Coordinator) Events() <-chan models.SyncEvent {
	return c.events
}

// Status reports engine progress at a point in time.
func (c *Coordinator) Status(ctx context.Context) (*models.SyncStatus, error) {
	pending, err := c.repos.Queue.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &models.SyncStatus{
		IsSyncing:    c.syncing,
		PendingCount: pending,
		LastSyncTime: c.lastSync,
	}, nil
}

// TriggerSync requests a sync cycle. Rapid repeated triggers coalesce: the
// loop debounces them into a single cycle after a short delay.
func (c *Coordinator) TriggerSync() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Start launches the background loop: debounced explicit triggers, the
// periodic timer, and the connectivity probe that fires a sync when the
// engine comes back online.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		defer close(c.done)

		periodic := time.NewTicker(c.cfg.SyncInterval)
		defer periodic.Stop()
		probe := time.NewTicker(c.cfg.OnlineCheckInterval)
		defer probe.Stop()

		var debounce *time.Timer
		var debounceC <-chan time.Time
		wasOnline := c.watcher.Online(ctx)

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case <-c.trigger:
				// restart the debounce window
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.NewTimer(c.cfg.DebounceDelay)
				debounceC = debounce.C

			case <-debounceC:
				debounceC = nil
				c.runCycle(ctx, "trigger")

			case <-periodic.C:
				c.runCycle(ctx, "periodic")

			case <-probe.C:
				online := c.watcher.Online(ctx)
				if online && !wasOnline {
					c.log.Info(ctx, "back online, scheduling sync")
					c.TriggerSync()
				}
				wasOnline = online
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit. A cycle already running is
// allowed to finish; observers must tolerate events arriving after Stop.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	close(c.events)
}

// SyncNow runs one cycle synchronously, bypassing debounce. Used by callers
// that need completion, and by tests.
func (c *Coordinator) SyncNow(ctx context.Context) {
	c.runCycle(ctx, "explicit")
}

func (c *Coordinator) emit(eventType models.EventType, syncID, message string) {
	ev := models.SyncEvent{
		Type:           eventType,
		DocumentSyncID: syncID,
		Message:        message,
		Timestamp:      c.now().UTC(),
	}
	select {
	case c.events <- ev:
	default:
	}
}

func (c *Coordinator) setSyncing(on bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on && c.syncing {
		return false
	}
	c.syncing = on
	return true
}

func (c *Coordinator) markSynced() {
	c.mu.Lock()
	t := c.now().UTC()
	c.lastSync = &t
	c.mu.Unlock()
}
