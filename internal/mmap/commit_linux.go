//go:build linux

package mmap

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Commit reserves storage for [off, off+length) of b.
func Commit(b Backing, off, length int64) error {
	if off < 0 || length < 0 {
		return ErrInvalidOffset
	}
	if length == 0 {
		return nil
	}
	err := unix.Fallocate(int(b.Fd()), 0, off, length)
	if errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS) {
		return nil
	}
	return err
}
