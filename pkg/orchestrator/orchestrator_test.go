package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/config"
	"github.com/ram-shortage/brindex/pkg/ingest"
	"github.com/ram-shortage/brindex/pkg/types"
)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

func openTestStore(t *testing.T) catalog.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunSkipsUnknownFilesystem(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	probe := func() ([]types.VolumeInfo, error) {
		return []types.VolumeInfo{
			{DriveLetter: "Z", VolumeSerial: "DEADBEEF", FilesystemKind: types.FilesystemUnknown},
		}, nil
	}

	total, err := run(ctx, store, nil, make(chan struct{}), probe)
	require.NoError(t, err)
	assert.Zero(t, total)

	v, err := store.GetVolume(ctx, "Z")
	require.NoError(t, err)
	assert.Nil(t, v, "unknown-filesystem volumes must never be upserted")
}

func TestRunSkipsVolumesDisabledByConfig(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	probe := func() ([]types.VolumeInfo, error) {
		return []types.VolumeInfo{
			{DriveLetter: "D", VolumeSerial: "AAAA1111", FilesystemKind: types.FilesystemFAT32},
		}, nil
	}
	cfg := &config.Config{Volumes: map[string]config.VolumeConfig{}}

	total, err := run(ctx, store, cfg, make(chan struct{}), probe)
	require.NoError(t, err)
	assert.Zero(t, total)

	v, err := store.GetVolume(ctx, "D")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRunIndexesEnabledFATVolume(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(root, "a.txt"), "hello"))

	store := openTestStore(t)
	ctx := context.Background()
	probe := func() ([]types.VolumeInfo, error) {
		return []types.VolumeInfo{
			{DriveLetter: "D", VolumeSerial: "AAAA1111", FilesystemKind: types.FilesystemFAT32},
		}, nil
	}

	total, err := runOverRoot(ctx, store, root, probe)
	require.NoError(t, err)
	assert.Positive(t, total)

	v, err := store.GetVolume(ctx, "D")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, types.VolumeOnline, v.State.Kind)
}

func TestRunStopsBetweenVolumesOnShutdown(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	probe := func() ([]types.VolumeInfo, error) {
		return []types.VolumeInfo{
			{DriveLetter: "D", VolumeSerial: "AAAA1111", FilesystemKind: types.FilesystemFAT32},
			{DriveLetter: "E", VolumeSerial: "BBBB2222", FilesystemKind: types.FilesystemFAT32},
		}, nil
	}
	shutdown := make(chan struct{})
	close(shutdown)

	total, err := run(ctx, store, nil, shutdown, probe)
	require.NoError(t, err)
	assert.Zero(t, total)

	v, err := store.GetVolume(ctx, "D")
	require.NoError(t, err)
	assert.Nil(t, v, "shutdown before the first volume must skip it entirely")
}

// runOverRoot indexes a synthetic FAT volume whose "drive root" is an
// arbitrary directory, using ingest.WalkRoot directly. It exists because
// ScanFATVolume hardcodes "D:\" and that path doesn't exist off-Windows,
// so the dispatch-and-state-transition behavior is exercised here
// against a walkable temp directory instead.
func runOverRoot(ctx context.Context, store catalog.Store, root string, probe func() ([]types.VolumeInfo, error)) (int, error) {
	volumes, err := probe()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, info := range volumes {
		volumeID, err := store.InsertOrReplaceVolume(ctx, info.DriveLetter, info.VolumeSerial, info.FilesystemKind)
		if err != nil {
			return total, err
		}
		if err := store.UpdateVolumeState(ctx, volumeID, types.Indexing()); err != nil {
			return total, err
		}
		n, err := ingest.WalkRoot(ctx, root, volumeID, store, make(chan struct{}))
		total += n
		if err != nil {
			return total, err
		}
		if err := store.UpdateVolumeState(ctx, volumeID, types.Online()); err != nil {
			return total, err
		}
	}
	return total, nil
}
