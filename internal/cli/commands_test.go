package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/rpc"
	"github.com/hupe1980/shmvec/snapshot"
)

const testNS = "cli"

func newRegistry(t *testing.T) (*shmvec.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	reg, err := shmvec.NewRegistry(shmvec.WithDir(dir), shmvec.WithNamespace(testNS))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg, dir
}

func fill(t *testing.T, reg *shmvec.Registry, n int) shmvec.VectorID {
	t.Helper()
	id, err := shmvec.AllocOf[uint64](reg, 1024, 64, 0)
	require.NoError(t, err)
	v, err := shmvec.Lookup[uint64](reg, id)
	require.NoError(t, err)
	defer v.Close()
	for i := range n {
		require.NoError(t, v.PushBack(uint64(i*i)))
	}
	return id
}

func serveHost(t *testing.T, reg *shmvec.Registry) {
	t.Helper()
	h, err := rpc.NewHost(reg, rpc.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Listen(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = h.Close()
	})
}

func TestInspect(t *testing.T) {
	reg, dir := newRegistry(t)
	id := fill(t, reg, 100)

	out, err := execute(t, "inspect", "--dir", dir, "--ns", testNS, "--format", "json")
	require.NoError(t, err)
	stats := decode[[]shmvec.Stat](t, out)
	require.Len(t, stats, 1)
	assert.Equal(t, id, stats[0].ID)
	assert.Equal(t, uint64(100), stats[0].Size)
	assert.Equal(t, uint32(8), stats[0].ElementSize)
	assert.Equal(t, int32(0), stats[0].UserCount)

	out, err = execute(t, "inspect", "--dir", dir, "--ns", testNS, "--id", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "COMMITTED")

	out, err = execute(t, "inspect", "--path", shmvec.Path(dir, testNS, id), "--format", "json")
	require.NoError(t, err)
	assert.Len(t, decode[[]shmvec.Stat](t, out), 1)

	_, err = execute(t, "inspect", "--dir", dir)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "inspect", "--dir", dir, "--ns", testNS, "--id", "9")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestInspect_Empty(t *testing.T) {
	_, dir := newRegistry(t)
	out, err := execute(t, "inspect", "--dir", dir, "--ns", testNS)
	require.NoError(t, err)
	assert.Contains(t, out, "no vectors")
}

func TestExportImport(t *testing.T) {
	reg, dir := newRegistry(t)
	id := fill(t, reg, 300)
	store := t.TempDir()

	out, err := execute(t, "export", "--dir", dir, "--ns", testNS, "--id", "1", "--store", store, "--codec", "zstd", "--format", "json")
	require.NoError(t, err)
	res := decode[snapshotResult](t, out)
	assert.Equal(t, testNS+"/1.snap", res.Name)
	assert.Equal(t, uint64(300), res.Header.Count)
	assert.Equal(t, snapshot.CodecZstd, res.Header.Codec)
	_, err = os.Stat(filepath.Join(store, testNS, "1.snap"))
	require.NoError(t, err)

	t.Run("via host", func(t *testing.T) {
		serveHost(t, reg)

		out, err := execute(t, "import", "--dir", dir, "--ns", testNS, "--store", "file://"+filepath.ToSlash(store), "--name", res.Name, "--format", "json")
		require.NoError(t, err)
		got := decode[snapshotResult](t, out)
		require.NotEqual(t, uint32(id), got.ID)

		v, err := shmvec.Lookup[uint64](reg, shmvec.VectorID(got.ID))
		require.NoError(t, err)
		defer v.Close()
		require.Equal(t, 300, v.Len())
		for i, x := range v.All() {
			require.Equal(t, uint64(i*i), x)
		}
	})

	t.Run("into existing", func(t *testing.T) {
		out, err := execute(t, "import", "--dir", dir, "--ns", testNS, "--store", store, "--name", res.Name, "--into", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "imported")

		v, err := shmvec.Lookup[uint64](reg, id)
		require.NoError(t, err)
		defer v.Close()
		assert.Equal(t, 600, v.Len())
		x, err := v.At(300)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), x)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		_, err := execute(t, "import", "--dir", dir, "--ns", testNS, "--store", store, "--name", "nope", "--into", "1")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
	})

	t.Run("no host", func(t *testing.T) {
		_, err := execute(t, "import", "--dir", dir, "--ns", testNS, "--store", store, "--name", res.Name, "--dial-timeout", "50ms")
		require.Error(t, err)
	})
}

func TestExport_BadCodec(t *testing.T) {
	_, dir := newRegistry(t)
	_, err := execute(t, "export", "--dir", dir, "--ns", testNS, "--id", "1", "--store", t.TempDir(), "--codec", "brotli")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAllocFree(t *testing.T) {
	reg, dir := newRegistry(t)
	serveHost(t, reg)

	out, err := execute(t, "alloc", "--dir", dir, "--ns", testNS, "--element-size", "16", "--max", "1000", "--window", "32", "--format", "json")
	require.NoError(t, err)
	id := decode[map[string]uint32](t, out)["id"]
	require.NotZero(t, id)

	st, err := reg.Stat(shmvec.VectorID(id))
	require.NoError(t, err)
	assert.Equal(t, uint32(16), st.ElementSize)

	out, err = execute(t, "free", "--dir", dir, "--ns", testNS, "--id", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "freed 1")

	_, err = execute(t, "free", "--dir", dir, "--ns", testNS, "--id", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, shmvec.ErrNotFound)
}

func TestHostCommand(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	var out string
	go func() {
		var err error
		out, err = executeContext(ctx, t, "host", "--dir", dir, "--ns", testNS, "--poll-interval", "5ms", "--stay-up", "--metrics-addr", "127.0.0.1:0")
		done <- err
	}()

	block := filepath.Join(dir, testNS, "rpc.cmd")
	require.Eventually(t, func() bool {
		_, err := os.Stat(block)
		return err == nil
	}, 5*time.Second, 5*time.Millisecond)

	_, err := execute(t, "alloc", "--dir", dir, "--ns", testNS, "--element-size", "4", "--max", "10", "--window", "4")
	require.NoError(t, err)

	// A second client can dial once the first has closed.
	_, err = execute(t, "alloc", "--dir", dir, "--ns", testNS, "--element-size", "4", "--max", "10", "--window", "4")
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not stop")
	}
	assert.Contains(t, out, "hosting namespace "+testNS)

	_, err = os.Stat(block)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
