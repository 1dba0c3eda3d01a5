package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Commit(t *testing.T) {
	c := NewController(Config{CommitLimitBytes: 100})

	require.NoError(t, c.AcquireCommit(50))
	require.NoError(t, c.AcquireCommit(40))
	assert.Equal(t, int64(90), c.CommittedBytes())

	assert.ErrorIs(t, c.AcquireCommit(20), ErrCommitLimitExceeded)
	assert.Equal(t, int64(90), c.CommittedBytes())

	c.ReleaseCommit(50)
	assert.Equal(t, int64(40), c.CommittedBytes())

	require.NoError(t, c.AcquireCommit(20))
	assert.Equal(t, int64(60), c.CommittedBytes())
}

func TestController_UnlimitedCommit(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireCommit(1<<40))
	assert.Equal(t, int64(1<<40), c.CommittedBytes())
	c.ReleaseCommit(1 << 40)
	assert.Zero(t, c.CommittedBytes())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireCommit(10))
	c.ReleaseCommit(10)
	assert.Zero(t, c.CommittedBytes())
	assert.NoError(t, c.AcquireBackground(context.Background()))
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()
	assert.NoError(t, c.AcquireIO(context.Background(), 1<<20))
	assert.Equal(t, Config{}, c.Config())
}

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(context.Background()))
	assert.True(t, c.TryAcquireBackground())
	assert.False(t, c.TryAcquireBackground())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireBackground(ctx), context.DeadlineExceeded)

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1000})

	start := time.Now()
	// The first burst is free; the next 500 bytes need about half a second.
	require.NoError(t, c.AcquireIO(context.Background(), 1500))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 2000))
}

func TestRateLimitedIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	ctx := context.Background()

	var buf bytes.Buffer
	w := NewRateLimitedWriter(ctx, &buf, c)
	n, err := w.Write([]byte("window"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	r := NewRateLimitedReader(ctx, bytes.NewReader(buf.Bytes()), c)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "window", string(out))
	assert.Equal(t, int64(6), w.Bytes())
	assert.Equal(t, int64(6), r.Bytes())
}

func TestRateLimitedIO_NilController(t *testing.T) {
	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, nil)
	_, err := w.Write(make([]byte, 1<<20))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), w.Bytes())
}
