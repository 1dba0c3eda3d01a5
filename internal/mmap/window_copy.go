//go:build unix && !linux && !darwin

package mmap

func newPlatformWindow(b Backing, length int) (Window, error) {
	return NewCopyWindow(b, b, length)
}
