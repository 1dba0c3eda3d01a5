//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// viewWindow maps a fresh view per Map; the base address may change.
type viewWindow struct {
	h      windows.Handle
	addr   uintptr
	length int
	closed bool
}

func newPlatformWindow(b Backing, length int) (Window, error) {
	h, err := windows.CreateFileMapping(windows.Handle(b.Fd()), nil, windows.PAGE_READWRITE, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	return &viewWindow{h: h, length: length}, nil
}

func (w *viewWindow) Map(off int64) error {
	if w.closed {
		return ErrClosed
	}
	if err := checkOffset(off); err != nil {
		return err
	}
	if err := w.Unmap(); err != nil {
		return err
	}
	addr, err := windows.MapViewOfFile(w.h, windows.FILE_MAP_WRITE, uint32(uint64(off)>>32), uint32(off), uintptr(w.length))
	if err != nil {
		return err
	}
	w.addr = addr
	return nil
}

func (w *viewWindow) Unmap() error {
	if w.closed {
		return ErrClosed
	}
	if w.addr == 0 {
		return nil
	}
	err := windows.UnmapViewOfFile(w.addr)
	w.addr = 0
	return err
}

func (w *viewWindow) Bytes() []byte {
	if w.closed || w.addr == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(w.addr)), w.length)
}

func (w *viewWindow) Flush(lo, hi int) error   { return w.checkRange(lo, hi) }
func (w *viewWindow) Refresh(lo, hi int) error { return w.checkRange(lo, hi) }

func (w *viewWindow) checkRange(lo, hi int) error {
	if w.closed {
		return ErrClosed
	}
	if w.addr == 0 {
		return ErrNotMapped
	}
	if lo < 0 || hi > w.length || lo > hi {
		return ErrInvalidOffset
	}
	return nil
}

func (w *viewWindow) Len() int { return w.length }

func (w *viewWindow) Close() error {
	if w.closed {
		return nil
	}
	err := w.Unmap()
	w.closed = true
	if cerr := windows.CloseHandle(w.h); err == nil {
		err = cerr
	}
	return err
}
