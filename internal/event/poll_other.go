//go:build !linux

package event

import (
	"sync/atomic"
	"time"
)

const (
	minBackoff = 50 * time.Microsecond
	maxBackoff = 2 * time.Millisecond
)

// wait polls *addr until it differs from val or d elapses. d < 0 waits forever.
func wait(addr *uint32, val uint32, d time.Duration) error {
	var deadline time.Time
	if d >= 0 {
		deadline = time.Now().Add(d)
	}
	backoff := minBackoff
	for atomic.LoadUint32(addr) == val {
		sleep := backoff
		if d >= 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrTimeout
			}
			if sleep > remaining {
				sleep = remaining
			}
		}
		time.Sleep(sleep)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
	return nil
}

func wake(*uint32) error { return nil }
