package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/logging"
	"github.com/philipmoss2002/life-app-sub008/internal/models"
	"github.com/philipmoss2002/life-app-sub008/internal/remote"
)

// ConnectivityWatcher answers "are we online" from a short-lived cached
// snapshot, probing the remote service only when the snapshot has gone
// stale. A probe result is trusted for the full TTL even if connectivity
// flips underneath it.
type ConnectivityWatcher struct {
	remote remote.Service
	log    logging.Logger
	ttl    time.Duration

	mu       sync.Mutex
	snapshot models.Cached[bool]
	now      func() time.Time
}

// NewConnectivityWatcher constructs a watcher with the given snapshot TTL.
func NewConnectivityWatcher(svc remote.Service, log logging.Logger, ttl time.Duration) *ConnectivityWatcher {
	return &ConnectivityWatcher{
		remote: svc,
		log:    log.With("component", "connectivity"),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Online reports remote reachability, probing when the snapshot is stale.
func (w *ConnectivityWatcher) Online(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if !w.snapshot.Stale(now, w.ttl) {
		return w.snapshot.Value
	}

	was := w.snapshot.Value
	online := w.remote.Ping(ctx) == nil
	w.snapshot = models.Refresh(online, now)

	if online != was {
		if online {
			w.log.Info(ctx, "connectivity restored")
		} else {
			w.log.Warn(ctx, "connectivity lost, entering offline mode")
		}
	}
	return online
}

// Invalidate drops the cached snapshot so the next Online call probes again.
func (w *ConnectivityWatcher) Invalidate() {
	w.mu.Lock()
	w.snapshot = models.Cached[bool]{}
	w.mu.Unlock()
}
