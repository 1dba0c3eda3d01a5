//go:build !linux

package mmap

// Commit reserves storage for [off, off+length) of b.
// Without fallocate the sized file is enough; pages appear on first touch.
func Commit(b Backing, off, length int64) error {
	if off < 0 || length < 0 {
		return ErrInvalidOffset
	}
	return nil
}
