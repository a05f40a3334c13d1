package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ram-shortage/brindex/pkg/log"
)

// mountDebounce absorbs the burst of WM_DEVICECHANGE messages Windows
// fires for a single drive letter at boot or on a slow USB enumeration.
const mountDebounce = 100 * time.Millisecond

// idlePoll is how long the message loop sleeps between PeekMessageW
// checks when nothing is queued; it bounds shutdown latency.
const idlePoll = 100 * time.Millisecond

// Watcher listens for volume mount/unmount notifications and forwards
// them to a Router. On Windows it pumps WM_DEVICECHANGE from a hidden
// window; elsewhere it is a documented no-op, since no OS primitive for
// this exists off Windows.
type Watcher struct {
	router *Router
	logger zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher that routes events to router.
func New(router *Router) *Watcher {
	return &Watcher{
		router:  router,
		logger:  log.WithComponent("watcher"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
}

// Stop signals the message pump to exit and waits for it to finish. Safe
// to call even if Start's platform loop never actually runs.
func (w *Watcher) Stop() {
	select {
	case <-w.stopCh:
		return
	default:
		close(w.stopCh)
	}
	<-w.doneCh
}

func (w *Watcher) dispatchUnmount(ctx context.Context, driveLetter string) {
	w.mu.Lock()
	if t, ok := w.pending[driveLetter]; ok {
		t.Stop()
		delete(w.pending, driveLetter)
	}
	w.mu.Unlock()
	w.router.Handle(ctx, VolumeEvent{DriveLetter: driveLetter, Mounted: false}, w.stopCh)
}

func (w *Watcher) dispatchMountDebounced(ctx context.Context, driveLetter string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[driveLetter]; ok {
		t.Stop()
	}
	w.pending[driveLetter] = time.AfterFunc(mountDebounce, func() {
		w.router.Handle(ctx, VolumeEvent{DriveLetter: driveLetter, Mounted: true}, w.stopCh)
		w.mu.Lock()
		delete(w.pending, driveLetter)
		w.mu.Unlock()
	})
}

// driveLettersFromMask decodes a DEV_BROADCAST_VOLUME.dbcv_unitmask
// bitmask into drive letters, bit 0 = A.
func driveLettersFromMask(mask uint32) []string {
	var letters []string
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) != 0 {
			letters = append(letters, string(rune('A'+i)))
		}
	}
	return letters
}
