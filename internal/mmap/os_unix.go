//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// Granularity is the alignment required for mapping offsets.
func Granularity() int {
	return os.Getpagesize()
}

func osMap(b Backing, off int64, size int, writable bool) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(int(b.Fd()), off, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}
