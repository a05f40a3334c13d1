package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/ingest"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/types"
	"github.com/ram-shortage/brindex/pkg/volumeprobe"
)

// VolumeEvent is one drive-letter mount or unmount notification, as
// decoded from a WM_DEVICECHANGE bitmask or synthesized by a test.
type VolumeEvent struct {
	DriveLetter string
	Mounted     bool
}

// Router applies VolumeEvents to the catalog through the Volume State
// Machine, and indexes volumes that appear with a serial the catalog
// hasn't seen before.
type Router struct {
	store  catalog.Store
	logger zerolog.Logger
	probe  func() ([]types.VolumeInfo, error)
}

// NewRouter creates a router over store.
func NewRouter(store catalog.Store) *Router {
	return &Router{
		store:  store,
		logger: log.WithComponent("router"),
		probe:  volumeprobe.Probe,
	}
}

// Handle processes one event. shutdown is threaded through to the
// ingestor so a newly-mounted volume's initial scan can be cancelled by
// the same signal that stops every other worker.
func (r *Router) Handle(ctx context.Context, ev VolumeEvent, shutdown <-chan struct{}) {
	if ev.Mounted {
		r.handleMount(ctx, ev.DriveLetter, shutdown)
		return
	}
	r.handleUnmount(ctx, ev.DriveLetter)
}

func (r *Router) handleUnmount(ctx context.Context, driveLetter string) {
	vol, err := r.store.GetVolume(ctx, driveLetter)
	if err != nil || vol == nil {
		return
	}
	next, err := Transition(vol.State, EventUnmount, time.Now())
	if err != nil {
		r.logger.Warn().Err(err).Str("drive_letter", driveLetter).Msg("illegal unmount transition")
		return
	}
	if err := r.store.UpdateVolumeState(ctx, vol.ID, next); err != nil {
		r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to record unmount")
	}
}

func (r *Router) handleMount(ctx context.Context, driveLetter string, shutdown <-chan struct{}) {
	infos, err := r.probe()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to probe after mount event")
		return
	}
	var info *types.VolumeInfo
	for i := range infos {
		if infos[i].DriveLetter == driveLetter {
			info = &infos[i]
			break
		}
	}
	if info == nil {
		r.logger.Warn().Str("drive_letter", driveLetter).Msg("mount event fired but drive not found by probe")
		return
	}

	existing, err := r.store.GetVolume(ctx, driveLetter)
	if err != nil {
		r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to look up existing volume")
		return
	}

	if existing != nil && existing.VolumeSerial == info.VolumeSerial {
		next, err := Transition(existing.State, EventMountSameSerial, time.Now())
		if err != nil {
			r.logger.Warn().Err(err).Str("drive_letter", driveLetter).Msg("illegal mount transition")
			return
		}
		if err := r.store.UpdateVolumeState(ctx, existing.ID, next); err != nil {
			r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to record remount")
		}
		return
	}

	if existing != nil {
		next, err := Transition(existing.State, EventMountNewSerial, time.Now())
		if err == nil {
			if err := r.store.UpdateVolumeState(ctx, existing.ID, next); err != nil {
				r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to retire replaced volume")
			}
		}
	}

	if info.FilesystemKind == types.FilesystemUnknown {
		r.logger.Warn().Str("drive_letter", driveLetter).Msg("skipping newly mounted volume of unrecognized filesystem")
		return
	}

	r.indexNewVolume(ctx, *info, shutdown)
}

func (r *Router) indexNewVolume(ctx context.Context, info types.VolumeInfo, shutdown <-chan struct{}) {
	driveLetter := info.DriveLetter
	volumeID, err := r.store.InsertOrReplaceVolume(ctx, info.DriveLetter, info.VolumeSerial, info.FilesystemKind)
	if err != nil {
		r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to create volume record for new mount")
		return
	}
	if err := r.store.UpdateVolumeState(ctx, volumeID, types.Indexing()); err != nil {
		r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to mark newly mounted volume indexing")
		return
	}

	var n int
	if info.FilesystemKind == types.FilesystemNTFS {
		n, err = ingest.ScanNTFSVolume(ctx, driveLetter, volumeID, r.store, shutdown)
	} else {
		n, err = ingest.ScanFATVolume(ctx, driveLetter, volumeID, r.store, shutdown)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to index newly mounted volume")
	} else {
		r.logger.Info().Str("drive_letter", driveLetter).Int("indexed", n).Msg("newly mounted volume indexed")
	}

	if err := r.store.UpdateVolumeState(ctx, volumeID, types.Online()); err != nil {
		r.logger.Error().Err(err).Str("drive_letter", driveLetter).Msg("failed to mark newly mounted volume online")
	}
}
