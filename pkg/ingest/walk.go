package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/types"
)

const (
	walkShutdownPollEvery = 10_000
	walkProgressLogEvery  = 50_000
)

// ScanFATVolume walks driveLetter's root directory, minting synthetic
// file references. Use WalkRoot directly to index an arbitrary directory
// tree (tests exercise it against a temp directory on any OS).
func ScanFATVolume(ctx context.Context, driveLetter string, volumeID int64, store catalog.Store, shutdown <-chan struct{}) (int, error) {
	return WalkRoot(ctx, driveRoot(driveLetter), volumeID, store, shutdown)
}

// WalkRoot performs the Directory-Walk Ingestor's traversal starting at
// root. The root itself is assigned file_ref 0 and every subsequent
// entry a sequential reference, with an in-memory path-to-ref map
// resolving parent_ref on the fly since the underlying walk never
// exposes a stable per-entry identifier the way an MFT record number
// does.
func WalkRoot(ctx context.Context, root string, volumeID int64, store catalog.Store, shutdown <-chan struct{}) (int, error) {
	logger := log.WithComponent("walk")

	refs := map[string]uint64{root: 0}
	nextRef := uint64(1)

	var (
		batch       []types.File
		total       int
		seen        int
		parseErrors int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.BatchInsertFiles(ctx, batch)
		total += n
		batch = batch[:0]
		return err
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			parseErrors++
			if parseErrors <= maxLoggedParseErrors {
				logger.Debug().Err(err).Str("path", path).Msg("failed to stat entry during walk")
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		seen++
		if seen%walkShutdownPollEvery == 0 {
			select {
			case <-shutdown:
				return errShutdown
			default:
			}
		}
		if seen%walkProgressLogEvery == 0 {
			logger.Info().Int("seen", seen).Int("indexed", total).Msg("directory walk progress")
		}

		var fileRef uint64
		isRoot := path == root
		if isRoot {
			fileRef = 0
		} else {
			fileRef = nextRef
			nextRef++
			refs[path] = fileRef
		}

		var parentRef *uint64
		if !isRoot {
			parentPath := filepath.Dir(path)
			if p, ok := refs[parentPath]; ok {
				parentRef = &p
			}
		}

		var size int64
		var modified *time.Time
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size = info.Size()
				m := info.ModTime()
				modified = &m
			} else {
				parseErrors++
				if parseErrors <= maxLoggedParseErrors {
					logger.Debug().Err(err).Str("path", path).Msg("failed to read file metadata")
				}
			}
		}

		name := d.Name()
		if isRoot {
			name = ""
		}

		batch = append(batch, types.File{
			VolumeID:  volumeID,
			FileRef:   fileRef,
			ParentRef: parentRef,
			Name:      name,
			Size:      size,
			Modified:  modified,
			IsDir:     d.IsDir(),
		})

		if len(batch) >= catalog.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(walkErr, errShutdown) {
		logger.Info().Int("seen", seen).Msg("directory walk received shutdown signal, flushing")
		if err := flush(); err != nil {
			return total, err
		}
		return total, nil
	}
	if walkErr != nil {
		_ = flush()
		return total, fmt.Errorf("ingest: walk %s: %w", root, walkErr)
	}

	if err := flush(); err != nil {
		return total, err
	}

	if parseErrors > 0 {
		logger.Warn().Int("errors", parseErrors).Msg("directory walk completed with per-entry errors")
	}
	logger.Info().Int("indexed", total).Msg("directory walk complete")
	return total, nil
}

var errShutdown = errors.New("ingest: shutdown signal received")

func driveRoot(driveLetter string) string {
	return driveLetter + `:\`
}
