//go:build linux || darwin

package mmap

import (
	"errors"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// badFdBacking makes MAP_FIXED fail with EBADF while broken is set.
type badFdBacking struct {
	*os.File
	broken bool
}

func (b *badFdBacking) Fd() uintptr {
	if b.broken {
		return ^uintptr(0)
	}
	return b.File.Fd()
}

func TestFixedWindow_FailedMapKeepsReservation(t *testing.T) {
	page := Granularity()
	f := sizedFile(t, int64(2*page))
	_, err := f.WriteAt([]byte("data"), int64(page))
	require.NoError(t, err)

	b := &badFdBacking{File: f}
	w, err := newPlatformWindow(b, page)
	require.NoError(t, err)
	defer w.Close()
	fw := w.(*fixedWindow)
	addr := fw.addr

	require.NoError(t, w.Map(0))

	b.broken = true
	err = w.Map(int64(page))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReservationLost)
	assert.Nil(t, w.Bytes())
	assert.False(t, fw.lost)

	b.broken = false
	require.NoError(t, w.Map(int64(page)))
	assert.Equal(t, addr, fw.addr)
	assert.Equal(t, "data", string(w.Bytes()[:4]))
}

func TestFixedWindow_LostReservation(t *testing.T) {
	page := Granularity()
	f := sizedFile(t, int64(page))

	w, err := newPlatformWindow(f, page)
	require.NoError(t, err)
	fw := w.(*fixedWindow)

	errInjected := errors.New("injected")
	orig := mmapPtr
	mmapPtr = func(int, int64, unsafe.Pointer, uintptr, int, int) (unsafe.Pointer, error) {
		return nil, errInjected
	}
	t.Cleanup(func() {
		mmapPtr = orig
		// The fake never touched the reservation, so it is still ours.
		_ = unix.MunmapPtr(fw.addr, uintptr(page))
	})

	err = w.Map(0)
	assert.ErrorIs(t, err, errInjected)
	assert.ErrorIs(t, err, ErrReservationLost)

	assert.Nil(t, w.Bytes())
	assert.ErrorIs(t, w.Map(0), ErrReservationLost)
	assert.ErrorIs(t, w.Unmap(), ErrReservationLost)
	assert.ErrorIs(t, w.Flush(0, 1), ErrReservationLost)
	assert.NoError(t, w.Close())
}
