package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/config"
	"github.com/ram-shortage/brindex/pkg/ingest"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/metrics"
	"github.com/ram-shortage/brindex/pkg/types"
	"github.com/ram-shortage/brindex/pkg/volumeprobe"
)

// Run performs one startup indexing pass: probe every drive letter,
// dispatch each enabled, non-Unknown volume to its ingestor, and return
// the total number of files indexed across all volumes. cfg may be nil,
// in which case every probed volume is indexed. Errors scanning one
// volume are logged and don't abort the pass; Run only returns an error
// if the probe itself fails.
func Run(ctx context.Context, store catalog.Store, cfg *config.Config, shutdown <-chan struct{}) (int, error) {
	return run(ctx, store, cfg, shutdown, volumeprobe.Probe)
}

func run(ctx context.Context, store catalog.Store, cfg *config.Config, shutdown <-chan struct{}, probe func() ([]types.VolumeInfo, error)) (int, error) {
	runID := uuid.New().String()
	logger := log.WithComponent("orchestrator").With().Str("run_id", runID).Logger()

	volumes, err := probe()
	if err != nil {
		return 0, err
	}

	logger.Info().Int("volumes_found", len(volumes)).Msg("orchestration pass starting")

	total := 0
	for _, info := range volumes {
		select {
		case <-shutdown:
			logger.Info().Msg("orchestration pass received shutdown signal")
			return total, nil
		default:
		}

		vlog := logger.With().Str("drive_letter", info.DriveLetter).Logger()

		if info.FilesystemKind == types.FilesystemUnknown {
			vlog.Warn().Msg("skipping volume of unrecognized filesystem kind")
			continue
		}
		if cfg != nil && !cfg.Enabled(info.DriveLetter) {
			vlog.Debug().Msg("volume not enabled in configuration, skipping")
			continue
		}

		volumeID, err := store.InsertOrReplaceVolume(ctx, info.DriveLetter, info.VolumeSerial, info.FilesystemKind)
		if err != nil {
			vlog.Error().Err(err).Msg("failed to upsert volume record")
			continue
		}
		if err := store.RecordVolumeCapacity(ctx, volumeID, info.TotalSize, info.FreeSpace); err != nil {
			vlog.Warn().Err(err).Msg("failed to record volume capacity")
		}
		if err := store.UpdateVolumeState(ctx, volumeID, types.Indexing()); err != nil {
			vlog.Error().Err(err).Msg("failed to mark volume indexing")
			continue
		}

		n, err := indexVolume(ctx, info, volumeID, store, shutdown)
		if err != nil {
			vlog.Error().Err(err).Msg("ingest failed")
			metrics.IngestErrorsTotal.WithLabelValues(info.DriveLetter).Inc()
		} else {
			vlog.Info().Int("indexed", n).Msg("volume indexed")
		}
		total += n

		if err := store.UpdateVolumeState(ctx, volumeID, types.Online()); err != nil {
			vlog.Error().Err(err).Msg("failed to mark volume online after indexing")
		}
	}

	logger.Info().Int("total_indexed", total).Msg("orchestration pass complete")
	return total, nil
}

func indexVolume(ctx context.Context, info types.VolumeInfo, volumeID int64, store catalog.Store, shutdown <-chan struct{}) (int, error) {
	method := ingestMethod(info.FilesystemKind)
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.IngestDuration, info.DriveLetter, method)

	switch info.FilesystemKind {
	case types.FilesystemNTFS:
		return ingest.ScanNTFSVolume(ctx, info.DriveLetter, volumeID, store, shutdown)
	default:
		return ingest.ScanFATVolume(ctx, info.DriveLetter, volumeID, store, shutdown)
	}
}

func ingestMethod(kind types.FilesystemKind) string {
	if kind == types.FilesystemNTFS {
		return "mft"
	}
	return "walk"
}
