//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocationGranularity is the view offset alignment on every supported Windows release.
const allocationGranularity = 64 << 10

// Granularity is the alignment required for mapping offsets.
func Granularity() int {
	return allocationGranularity
}

func osMap(b Backing, off int64, size int, writable bool) ([]byte, func([]byte) error, error) {
	if size == 0 {
		return nil, nil, nil
	}

	prot, access := uint32(windows.PAGE_READONLY), uint32(windows.FILE_MAP_READ)
	if writable {
		prot, access = windows.PAGE_READWRITE, windows.FILE_MAP_WRITE
	}

	h, err := windows.CreateFileMapping(windows.Handle(b.Fd()), nil, prot, 0, 0, nil)
	if err != nil {
		return nil, nil, err
	}
	// The view holds its own reference to the mapping object.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, access, uint32(uint64(off)>>32), uint32(off), uintptr(size))
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	return data, func(b []byte) error {
		return windows.UnmapViewOfFile(addr)
	}, nil
}
