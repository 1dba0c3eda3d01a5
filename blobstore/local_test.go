package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	vfs "github.com/hupe1980/shmvec/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	blobName := "vec-001.snap"
	data := []byte("hello world, this is a test blob for shmvec")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible until Close.
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, blobName))
	require.NoError(t, err)

	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	rangeReader, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	defer rangeReader.Close()

	rangeContent, err := io.ReadAll(rangeReader)
	require.NoError(t, err)
	require.Equal(t, "this", string(rangeContent))

	m, ok := blob.(Mappable)
	require.True(t, ok)
	mapped, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, mapped)

	require.NoError(t, store.Put(ctx, "nested/vec-002.snap", []byte("x")))

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"nested/vec-002.snap", blobName}, names)

	names, err = store.List(ctx, "vec-")
	require.NoError(t, err)
	require.Equal(t, []string{blobName}, names)

	require.NoError(t, store.Delete(ctx, blobName))
	require.NoError(t, store.Delete(ctx, blobName), "deleting twice is not an error")

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"nested/vec-002.snap"}, names)

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_ReadRange_Boundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, _ := io.ReadAll(r)
	r.Close()
	require.True(t, bytes.Equal(data, content))

	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))
	r.Close()

	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)
}

func TestLocalBlobStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "empty", nil))

	blob, err := store.Open(ctx, "empty")
	require.NoError(t, err)
	defer blob.Close()
	assert.Zero(t, blob.Size())

	r, err := NewReader(ctx, blob)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestLocalBlobStore_Abort(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	w, err := store.Create(ctx, "partial.snap")
	require.NoError(t, err)
	_, err = w.Write([]byte("half"))
	require.NoError(t, err)
	require.NoError(t, Abort(w))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "abort leaves no temporary file behind")
}

func TestLocalBlobStore_FailedPublish(t *testing.T) {
	dir := t.TempDir()
	ffs := vfs.NewFaultyFS(nil)
	store := NewLocalStoreFS(dir, ffs)
	ctx := context.Background()

	t.Run("rename", func(t *testing.T) {
		ffs.AddRule("rename.snap", vfs.Fault{FailOnRename: true, FailAfterBytes: -1})
		err := store.Put(ctx, "rename.snap", []byte("data"))
		require.ErrorIs(t, err, vfs.ErrInjected)

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("write", func(t *testing.T) {
		ffs.ClearRules()
		ffs.AddRule("short.snap", vfs.Fault{FailAfterBytes: 2})
		err := store.Put(ctx, "short.snap", []byte("data"))
		require.ErrorIs(t, err, vfs.ErrInjected)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
