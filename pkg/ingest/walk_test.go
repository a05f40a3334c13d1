package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/types"
)

func openTestStore(t *testing.T) catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Users", "John", "Documents"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Users", "John", "Documents", "file.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Users", "John", "notes.txt"), []byte("hi"), 0o644))
	return root
}

func TestWalkRootIndexesEverything(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id, err := store.InsertOrReplaceVolume(ctx, "D", "AAAABBBB", types.FilesystemFAT32)
	require.NoError(t, err)

	root := writeTree(t)
	shutdown := make(chan struct{})

	n, err := WalkRoot(ctx, root, id, store, shutdown)
	require.NoError(t, err)
	// root + Users + John + Documents + file.txt + notes.txt
	assert.Equal(t, 6, n)

	count, err := store.GetFileCount(ctx, &id)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestWalkRootRootHasZeroFileRef(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id, err := store.InsertOrReplaceVolume(ctx, "D", "AAAABBBB", types.FilesystemFAT32)
	require.NoError(t, err)

	root := writeTree(t)
	shutdown := make(chan struct{})

	_, err = WalkRoot(ctx, root, id, store, shutdown)
	require.NoError(t, err)

	f, err := store.GetFile(ctx, id, 0)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, f.IsDir)
	assert.Nil(t, f.ParentRef)
}

func TestWalkRootReconstructsPath(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id, err := store.InsertOrReplaceVolume(ctx, "D", "AAAABBBB", types.FilesystemFAT32)
	require.NoError(t, err)

	root := writeTree(t)
	_, err = WalkRoot(ctx, root, id, store, make(chan struct{}))
	require.NoError(t, err)

	files, err := store.SearchFiles(ctx, "file.txt", 10)
	require.NoError(t, err)
	require.Len(t, files, 1)

	path, err := store.ReconstructPath(ctx, id, files[0].FileRef)
	require.NoError(t, err)
	assert.Equal(t, "Users/John/Documents/file.txt", path)
}
