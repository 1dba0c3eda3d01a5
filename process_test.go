package shmvec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperWriterFlag = "-test.run=HelperVectorWriter"

func TestMain(m *testing.M) {
	if len(os.Args) >= 7 && os.Args[1] == helperWriterFlag {
		os.Exit(runHelperWriter(os.Args[3], os.Args[4], os.Args[5], os.Args[6]))
	}
	os.Exit(m.Run())
}

func helperValue(i int) uint64 { return uint64(i)*3 + 1 }

// runHelperWriter attaches to the namespace, waits for the reader to block,
// then pushes count elements in batches of 10 with an Update per batch.
func runHelperWriter(dir, ns, rawID, rawCount string) int {
	fail := func(format string, args ...any) int {
		fmt.Fprintf(os.Stderr, "writer: "+format+"\n", args...)
		return 1
	}
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return fail("id: %v", err)
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil {
		return fail("count: %v", err)
	}

	reg, err := Attach(ns, WithDir(dir))
	if err != nil {
		return fail("attach: %v", err)
	}
	defer reg.Close()
	v, err := Lookup[uint64](reg, VectorID(id))
	if err != nil {
		return fail("lookup: %v", err)
	}
	defer v.Close()

	deadline := time.Now().Add(10 * time.Second)
	for !v.Reading() {
		if time.Now().After(deadline) {
			return fail("reader never started")
		}
		time.Sleep(time.Millisecond)
	}
	// Give the reader time to block in WaitRead.
	time.Sleep(20 * time.Millisecond)

	v.StartWrite()
	for i := range count {
		if err := v.PushBack(helperValue(i)); err != nil {
			return fail("push %d: %v", i, err)
		}
		if (i+1)%10 == 0 {
			if err := v.Update(); err != nil {
				return fail("update: %v", err)
			}
		}
	}
	if err := v.Complete(); err != nil {
		return fail("complete: %v", err)
	}
	return 0
}

func TestCrossProcess_WriterChild(t *testing.T) {
	const count = 100

	owner := newTestRegistry(t)
	id, err := AllocOf[uint64](owner, 1000, 16, 0)
	require.NoError(t, err)
	r, err := Lookup[uint64](owner, id)
	require.NoError(t, err)
	defer r.Close()
	r.StartRead()

	cmd := exec.Command(os.Args[0], helperWriterFlag, "--",
		filepath.Dir(owner.Dir()), owner.Namespace(), id.String(), strconv.Itoa(count))
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start())
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	var got []uint64
	err = r.Consume(10*time.Second, func(i int, x uint64) error {
		// Every index below the published size is fully written.
		assert.Equal(t, helperValue(i), x, "index %d", i)
		got = append(got, x)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, count)
	assert.Equal(t, count, r.Len())
	assert.Equal(t, uint64(7*16*8), r.CommittedBytes())

	require.NoError(t, cmd.Wait())
	assert.Zero(t, cmd.ProcessState.ExitCode())
}
