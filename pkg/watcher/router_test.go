package watcher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/types"
)

func openTestStore(t *testing.T) catalog.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHandleUnmountTransitionsOffline(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.InsertOrReplaceVolume(ctx, "C", "1234ABCD", types.FilesystemNTFS)
	require.NoError(t, err)

	r := NewRouter(store)
	r.Handle(ctx, VolumeEvent{DriveLetter: "C", Mounted: false}, nil)

	v, err := store.GetVolumeByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.VolumeOffline, v.State.Kind)
}

func TestHandleMountSameSerialReturnsOnline(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.InsertOrReplaceVolume(ctx, "C", "1234ABCD", types.FilesystemNTFS)
	require.NoError(t, err)
	require.NoError(t, store.UpdateVolumeState(ctx, id, types.Offline(time.Now())))

	r := NewRouter(store)
	r.probe = func() ([]types.VolumeInfo, error) {
		return []types.VolumeInfo{{DriveLetter: "C", VolumeSerial: "1234ABCD", FilesystemKind: types.FilesystemNTFS}}, nil
	}
	r.Handle(ctx, VolumeEvent{DriveLetter: "C", Mounted: true}, nil)

	v, err := store.GetVolumeByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.VolumeOnline, v.State.Kind)
}

func TestHandleMountNewSerialRetiresOldRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	oldID, err := store.InsertOrReplaceVolume(ctx, "D", "AAAA0000", types.FilesystemFAT32)
	require.NoError(t, err)

	r := NewRouter(store)
	r.probe = func() ([]types.VolumeInfo, error) {
		return []types.VolumeInfo{{DriveLetter: "D", VolumeSerial: "BBBB1111", FilesystemKind: types.FilesystemFAT32}}, nil
	}
	shutdown := make(chan struct{})
	close(shutdown)
	r.Handle(ctx, VolumeEvent{DriveLetter: "D", Mounted: true}, shutdown)

	old, err := store.GetVolumeByID(ctx, oldID)
	require.NoError(t, err)
	assert.Equal(t, types.VolumeOffline, old.State.Kind)

	fresh, err := store.GetVolume(ctx, "D")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, "BBBB1111", fresh.VolumeSerial)
}

func TestHandleMountSkipsUnknownFilesystem(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	r := NewRouter(store)
	r.probe = func() ([]types.VolumeInfo, error) {
		return []types.VolumeInfo{{DriveLetter: "E", VolumeSerial: "CCCC2222", FilesystemKind: types.FilesystemUnknown}}, nil
	}
	r.Handle(ctx, VolumeEvent{DriveLetter: "E", Mounted: true}, nil)

	v, err := store.GetVolume(ctx, "E")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestHandleMountDriveNotFoundByProbeIsNoop(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	r := NewRouter(store)
	r.probe = func() ([]types.VolumeInfo, error) { return nil, nil }
	r.Handle(ctx, VolumeEvent{DriveLetter: "F", Mounted: true}, nil)

	v, err := store.GetVolume(ctx, "F")
	require.NoError(t, err)
	assert.Nil(t, v)
}
