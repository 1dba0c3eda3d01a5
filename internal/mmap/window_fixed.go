//go:build linux || darwin

package mmap

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapPtr is swapped in tests to inject failures.
var mmapPtr = unix.MmapPtr

// fixedWindow keeps one PROT_NONE reservation for its whole life and maps
// file ranges over it with MAP_FIXED, so Bytes never moves.
type fixedWindow struct {
	b      Backing
	addr   unsafe.Pointer
	length int
	mapped bool
	closed bool
	// lost is set once the range at addr may no longer belong to the
	// window. Nothing touches addr after that.
	lost bool
}

func newPlatformWindow(b Backing, length int) (Window, error) {
	addr, err := mmapPtr(-1, 0, nil, uintptr(length), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &fixedWindow{b: b, addr: addr, length: length}, nil
}

func (w *fixedWindow) usable() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.lost:
		return ErrReservationLost
	}
	return nil
}

// reserve puts the PROT_NONE placeholder back over addr.
func (w *fixedWindow) reserve() error {
	_, err := mmapPtr(-1, 0, w.addr, uintptr(w.length), unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED)
	return err
}

func (w *fixedWindow) Map(off int64) error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := checkOffset(off); err != nil {
		return err
	}
	// MAP_FIXED replaces whatever occupies the range. A failed call may
	// already have unmapped it, so the placeholder is restored.
	_, err := mmapPtr(int(w.b.Fd()), off, w.addr, uintptr(w.length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED)
	if err != nil {
		w.mapped = false
		if rerr := w.reserve(); rerr != nil {
			w.lost = true
			return errors.Join(err, ErrReservationLost, rerr)
		}
		return err
	}
	w.mapped = true
	return nil
}

func (w *fixedWindow) Unmap() error {
	if err := w.usable(); err != nil {
		return err
	}
	if !w.mapped {
		return nil
	}
	if err := w.reserve(); err != nil {
		w.mapped, w.lost = false, true
		return errors.Join(ErrReservationLost, err)
	}
	w.mapped = false
	return nil
}

func (w *fixedWindow) Bytes() []byte {
	if w.closed || w.lost || !w.mapped {
		return nil
	}
	return unsafe.Slice((*byte)(w.addr), w.length)
}

func (w *fixedWindow) Flush(lo, hi int) error   { return w.checkRange(lo, hi) }
func (w *fixedWindow) Refresh(lo, hi int) error { return w.checkRange(lo, hi) }

func (w *fixedWindow) checkRange(lo, hi int) error {
	if err := w.usable(); err != nil {
		return err
	}
	if !w.mapped {
		return ErrNotMapped
	}
	if lo < 0 || hi > w.length || lo > hi {
		return ErrInvalidOffset
	}
	return nil
}

func (w *fixedWindow) Len() int { return w.length }

func (w *fixedWindow) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.mapped = false
	if w.lost {
		return nil
	}
	return unix.MunmapPtr(w.addr, uintptr(w.length))
}
