// Package catalog persists the file-name index: one row per attached
// Volume and one row per File it has ever seen. It is the only component
// that owns the on-disk database; every other package talks to it through
// the Store interface.
package catalog

import (
	"context"
	"errors"

	"github.com/ram-shortage/brindex/pkg/types"
)

// ErrNotFound names the not-found condition. The sqlite Store's lookups
// (GetVolume, GetVolumeByID, GetFile) do not return it: a missing row
// comes back as nil, nil.
var ErrNotFound = errors.New("catalog: not found")

// Store is the catalog's storage contract. The Service Shell opens one
// Store and hands it to every worker; the sqlite implementation sits on a
// database/sql pool, which gives each in-flight statement or transaction
// its own connection, so no connection is used by two goroutines at once
// and contention is absorbed by the 5s busy-timeout.
type Store interface {
	// InsertOrReplaceVolume upserts a volume identified by drive letter
	// and returns its row id.
	InsertOrReplaceVolume(ctx context.Context, driveLetter, volumeSerial string, fsKind types.FilesystemKind) (int64, error)

	// GetVolume returns nil, nil when the drive letter is unknown.
	GetVolume(ctx context.Context, driveLetter string) (*types.Volume, error)

	// GetVolumeByID returns nil, nil when the id is unknown.
	GetVolumeByID(ctx context.Context, volumeID int64) (*types.Volume, error)

	// ListVolumes returns every known volume, ordered by drive letter.
	ListVolumes(ctx context.Context) ([]types.Volume, error)

	UpdateVolumeUSN(ctx context.Context, volumeID int64, lastUSN int64, journalID uint64) error
	UpdateVolumeState(ctx context.Context, volumeID int64, state types.VolumeState) error

	// RecordVolumeCapacity denormalizes the Volume Probe's last reading so
	// callers don't need to reprobe to answer a capacity question.
	RecordVolumeCapacity(ctx context.Context, volumeID int64, totalSize, freeSpace int64) error

	// BatchInsertFiles inserts files in chunks of BatchSize, one
	// transaction per chunk. The returned count is the number of rows
	// successfully inserted across all chunks.
	BatchInsertFiles(ctx context.Context, files []types.File) (int, error)

	// ApplyChangesBatch applies a deduplicated slice of USN changes inside
	// a single transaction. Per-record failures are logged and skipped;
	// the transaction still commits the rest.
	ApplyChangesBatch(ctx context.Context, volumeID int64, changes []types.UsnChange) (int, error)

	DeleteVolumeFiles(ctx context.Context, volumeID int64) (int, error)

	// SearchFiles runs a naive case-insensitive substring match against
	// file names, with '*' and '?' translated to SQL wildcards. Whether a
	// bare query anchors to the whole name or just the extension is left
	// to the caller.
	SearchFiles(ctx context.Context, query string, limit int) ([]types.File, error)

	GetFileCount(ctx context.Context, volumeID *int64) (int, error)

	// ReconstructPath walks the parent chain of a file and returns its
	// path relative to the volume root, using '/' as separator.
	ReconstructPath(ctx context.Context, volumeID int64, fileRef uint64) (string, error)

	GetFile(ctx context.Context, volumeID int64, fileRef uint64) (*types.File, error)

	// CleanupOldOfflineVolumes deletes every File whose owning Volume has
	// been Offline for at least retentionDays. Returns the number of File
	// rows removed.
	CleanupOldOfflineVolumes(ctx context.Context, retentionDays int) (int, error)

	Close() error
}

// BatchSize is the chunk size used by BatchInsertFiles: the sweet spot
// between per-record commit overhead and unbounded WAL growth.
const BatchSize = 100_000
