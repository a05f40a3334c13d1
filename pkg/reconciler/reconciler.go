package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/ingest"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/metrics"
	"github.com/ram-shortage/brindex/pkg/types"
)

// loopInterval is the fixed cadence of the reconciler's single ticker;
// per-drive rescan intervals and the cleanup sweep are both driven off
// elapsed-time checks inside the same tick, not separate timers.
const loopInterval = 60 * time.Second

// cleanupInterval is how often the offline-retention sweep runs,
// regardless of how many drives are tracked or how often they rescan.
const cleanupInterval = 24 * time.Hour

// driveEntry tracks one FAT volume's rescan schedule.
type driveEntry struct {
	interval time.Duration
	lastScan time.Time
}

// Reconciler periodically forces a full rescan of each tracked FAT
// volume and sweeps offline volumes past their retention window. NTFS
// volumes don't need this: their USN Monitor keeps them current.
type Reconciler struct {
	store         catalog.Store
	retentionDays int
	logger        zerolog.Logger

	mu          sync.Mutex
	drives      map[string]*driveEntry
	lastCleanup time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a reconciler over store. retentionDays is the offline
// retention window passed to CleanupOldOfflineVolumes; callers should
// default it to 7 when unset.
func New(store catalog.Store, retentionDays int) *Reconciler {
	return &Reconciler{
		store:         store,
		retentionDays: retentionDays,
		logger:        log.WithComponent("reconciler"),
		drives:        make(map[string]*driveEntry),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Track registers driveLetter for periodic rescanning at interval,
// replacing any prior registration. It's safe to call while running.
func (r *Reconciler) Track(driveLetter string, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drives[driveLetter] = &driveEntry{interval: interval, lastScan: time.Now()}
}

// Untrack removes driveLetter, typically because its volume went
// offline or was disabled.
func (r *Reconciler) Untrack(driveLetter string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drives, driveLetter)
}

// Start begins the reconciliation loop in a background goroutine.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop requests the loop exit and blocks until it has.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// run is the single fixed-cadence loop: every tick it checks each
// tracked drive's rescan schedule and, separately, whether a day has
// passed since the last offline-retention sweep.
func (r *Reconciler) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(loopInterval)
	defer ticker.Stop()

	r.lastCleanup = time.Now()
	r.logger.Info().Msg("FAT reconciler started")

	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.stopCh:
			r.logger.Info().Msg("FAT reconciler stopped")
			return
		}
	}
}

// tick runs one reconciliation cycle: due rescans, then (at most once
// per cleanupInterval) the offline-retention sweep.
func (r *Reconciler) tick() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	r.mu.Lock()
	due := make(map[string]*driveEntry, len(r.drives))
	for letter, entry := range r.drives {
		due[letter] = entry
	}
	r.mu.Unlock()

	now := time.Now()
	for letter, entry := range due {
		select {
		case <-r.stopCh:
			return
		default:
		}
		if now.Sub(entry.lastScan) < entry.interval {
			continue
		}
		r.rescanVolume(letter)
		r.mu.Lock()
		entry.lastScan = time.Now()
		r.mu.Unlock()
	}

	if now.Sub(r.lastCleanup) >= cleanupInterval {
		r.cleanup()
		r.lastCleanup = now
	}
}

// rescanVolume transitions driveLetter to Rescanning, walks it with the
// Directory-Walk Ingestor, and transitions it back to Online regardless
// of whether the walk fully succeeded.
func (r *Reconciler) rescanVolume(driveLetter string) {
	ctx := context.Background()
	logger := log.WithVolume(driveLetter)

	vol, err := r.store.GetVolume(ctx, driveLetter)
	if err != nil || vol == nil {
		logger.Warn().Err(err).Msg("reconciler: volume disappeared before scheduled rescan")
		return
	}

	if err := r.store.UpdateVolumeState(ctx, vol.ID, types.Rescanning()); err != nil {
		logger.Error().Err(err).Msg("reconciler: failed to mark volume rescanning")
		return
	}

	if _, err := r.store.DeleteVolumeFiles(ctx, vol.ID); err != nil {
		logger.Error().Err(err).Msg("reconciler: failed to clear previous scan before rescan")
		if err := r.store.UpdateVolumeState(ctx, vol.ID, types.Online()); err != nil {
			logger.Error().Err(err).Msg("reconciler: failed to mark volume online after aborted rescan")
		}
		return
	}

	n, err := ingest.ScanFATVolume(ctx, driveLetter, vol.ID, r.store, r.stopCh)
	if err != nil {
		logger.Error().Err(err).Msg("reconciler: rescan failed")
	} else {
		logger.Info().Int("indexed", n).Msg("reconciler: rescan complete")
	}

	if err := r.store.UpdateVolumeState(ctx, vol.ID, types.Online()); err != nil {
		logger.Error().Err(err).Msg("reconciler: failed to mark volume online after rescan")
	}
}

// cleanup runs the offline-retention sweep.
func (r *Reconciler) cleanup() {
	ctx := context.Background()
	deleted, err := r.store.CleanupOldOfflineVolumes(ctx, r.retentionDays)
	if err != nil {
		r.logger.Error().Err(err).Msg("reconciler: offline-retention cleanup failed")
		return
	}
	if deleted > 0 {
		metrics.OfflineVolumesEvictedTotal.Add(float64(deleted))
		r.logger.Info().Int("deleted", deleted).Msg("reconciler: evicted files from retired offline volumes")
	}
}
