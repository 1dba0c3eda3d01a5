package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Open(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	src := []byte("abcdef")
	require.NoError(t, store.Put(ctx, "b", src))
	src[0] = 'X'

	w, err := store.Create(ctx, "a")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("late"))
	assert.Error(t, err)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	blob, err := store.Open(ctx, "b")
	require.NoError(t, err)
	r, err := NewReader(ctx, blob)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got), "Put copies its input")

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 4)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	aborted, err := store.Create(ctx, "c")
	require.NoError(t, err)
	_, err = aborted.Write([]byte("gone"))
	require.NoError(t, err)
	require.NoError(t, Abort(aborted))
	_, err = store.Open(ctx, "c")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "a"))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}
