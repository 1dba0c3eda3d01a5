package shmvec

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pair opens a writer view through the owner and a reader view through an
// attached registry, the way two processes would.
func pair(t *testing.T, maxElements uint64, windowElements uint32, opts ...Option) (*View[uint64], *View[uint64]) {
	t.Helper()
	owner := newTestRegistry(t, opts...)
	peer := attachTo(t, owner, opts...)

	id, err := AllocOf[uint64](owner, maxElements, windowElements, 0)
	require.NoError(t, err)

	w, err := Lookup[uint64](owner, id)
	require.NoError(t, err)
	r, err := Lookup[uint64](peer, id)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = w.Close()
		_ = r.Close()
	})
	return w, r
}

func TestWaitRead_SingleWakePerUpdate(t *testing.T) {
	w, r := pair(t, 100, 16)

	r.StartRead()
	w.StartWrite()
	for i := range 5 {
		require.NoError(t, w.PushBack(uint64(i)))
	}

	// Pushes within a window do not wake the reader.
	res, err := r.WaitRead(0)
	require.NoError(t, err)
	assert.Equal(t, WaitTimeout, res)

	require.NoError(t, w.Update())

	res, err = r.WaitRead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitUpdated, res)
	assert.Equal(t, 5, r.Len())

	// One update, one wake.
	res, err = r.WaitRead(20 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, WaitTimeout, res)
	assert.True(t, r.Reading())
}

func TestWaitRead_StaleUpdateKeepsWaiting(t *testing.T) {
	w, r := pair(t, 100, 16)
	r.StartRead()

	require.NoError(t, w.PushBack(1))
	require.NoError(t, w.Update())
	res, err := r.WaitRead(time.Second)
	require.NoError(t, err)
	require.Equal(t, WaitUpdated, res)

	// Update with nothing new is absorbed.
	require.NoError(t, w.Update())
	res, err = r.WaitRead(20 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, WaitTimeout, res)
}

func TestWaitRead_Completion(t *testing.T) {
	w, r := pair(t, 100, 16)

	r.StartRead()
	w.StartWrite()
	assert.True(t, w.Writing())
	require.NoError(t, w.PushBack(42))
	require.NoError(t, w.EndWrite())
	assert.False(t, w.Writing())

	res, err := r.WaitRead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitCompleted, res)
	assert.False(t, r.Reading())
	assert.Equal(t, 1, r.Len())
}

func TestWaitRead_UpdateBeforeCompletion(t *testing.T) {
	w, r := pair(t, 100, 16)
	r.StartRead()

	require.NoError(t, w.PushBack(1))
	require.NoError(t, w.Update())
	require.NoError(t, w.Complete())

	res, err := r.WaitRead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitUpdated, res)

	res, err = r.WaitRead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitCompleted, res)
}

func TestStartWrite_DropsStaleCompletion(t *testing.T) {
	w, r := pair(t, 100, 16)

	w.StartWrite()
	require.NoError(t, w.PushBack(1))
	require.NoError(t, w.Complete())

	w.StartWrite()
	require.NoError(t, w.PushBack(2))
	require.NoError(t, w.Update())

	r.StartRead()
	res, err := r.WaitRead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitUpdated, res)
	assert.True(t, r.Reading())

	res, err = r.WaitRead(20 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, WaitTimeout, res)

	require.NoError(t, w.Complete())
	res, err = r.WaitRead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitCompleted, res)
	assert.False(t, r.Reading())
}

func TestWaitRead_WakesBlockedReader(t *testing.T) {
	w, r := pair(t, 100, 16)
	r.StartRead()

	done := make(chan WaitResult, 1)
	go func() {
		res, _ := r.WaitRead(5 * time.Second)
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Append(1, 2, 3))
	require.NoError(t, w.Update())

	select {
	case res := <-done:
		assert.Equal(t, WaitUpdated, res)
	case <-time.After(5 * time.Second):
		t.Fatal("reader not woken")
	}
}

func TestWaitRead_AppendAcrossWindowSignals(t *testing.T) {
	w, r := pair(t, 100, 4)
	r.StartRead()
	w.StartWrite()

	for i := range 5 {
		require.NoError(t, w.PushBack(uint64(i)))
	}

	// The fifth push moved the writer to window 1 and signaled on its own.
	res, err := r.WaitRead(time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitUpdated, res)
	assert.GreaterOrEqual(t, r.Len(), 4)
}

func TestWaitRead_NoSignalOutsideWriteSession(t *testing.T) {
	w, r := pair(t, 100, 4)
	r.StartRead()

	for i := range 9 {
		require.NoError(t, w.PushBack(uint64(i)))
	}
	res, err := r.WaitRead(0)
	require.NoError(t, err)
	assert.Equal(t, WaitTimeout, res)
}

func TestWaitRead_Closed(t *testing.T) {
	_, r := pair(t, 10, 4)
	require.NoError(t, r.Close())
	res, err := r.WaitRead(0)
	assert.Equal(t, WaitFailed, res)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConsume(t *testing.T) {
	for _, copyWindows := range []bool{false, true} {
		w, r := pair(t, 1000, 16, WithCopyWindows(copyWindows))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.StartWrite()
			for batch := range 10 {
				for i := range 50 {
					_ = w.PushBack(uint64(batch*50 + i))
				}
				_ = w.Update()
				time.Sleep(time.Millisecond)
			}
			_ = w.EndWrite()
		}()

		var got []uint64
		err := r.Consume(5*time.Second, func(i int, x uint64) error {
			assert.Equal(t, len(got), i)
			got = append(got, x)
			return nil
		})
		wg.Wait()

		require.NoError(t, err)
		require.Len(t, got, 500)
		for i, x := range got {
			require.Equal(t, uint64(i), x)
		}
		assert.False(t, r.Reading())
	}
}

func TestConsume_TimeoutAndCallbackError(t *testing.T) {
	w, r := pair(t, 100, 8)
	require.NoError(t, w.Append(1, 2, 3))

	var n int
	err := r.Consume(20*time.Millisecond, func(int, uint64) error {
		n++
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 3, n)
	assert.False(t, r.Reading())

	stop := errors.New("stop")
	require.NoError(t, r.Seek(0))
	err = r.Consume(time.Second, func(i int, _ uint64) error {
		if i == 1 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}

func TestWaitResult_String(t *testing.T) {
	assert.Equal(t, "updated", WaitUpdated.String())
	assert.Equal(t, "completed", WaitCompleted.String())
	assert.Equal(t, "timeout", WaitTimeout.String())
	assert.Equal(t, "failed", WaitFailed.String())
}
