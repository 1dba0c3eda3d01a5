//go:build linux

package event

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Shared (non-private) futex operations: waiters may live in other processes.
const (
	futexWait = 0
	futexWake = 1
)

// wait blocks while *addr == val, until woken or d elapses. d < 0 waits forever.
// Spurious returns are allowed; callers re-check their condition.
func wait(addr *uint32, val uint32, d time.Duration) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}

	var tsp uintptr
	var ts unix.Timespec
	if d >= 0 {
		ts = unix.NsecToTimespec(int64(d))
		tsp = uintptr(unsafe.Pointer(&ts))
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWait,
		uintptr(val),
		tsp,
		0,
		0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	case unix.ETIMEDOUT:
		return ErrTimeout
	default:
		return fmt.Errorf("futex wait: %w", errno)
	}
}

func wake(addr *uint32) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWake,
		uintptr(math.MaxInt32),
		0,
		0,
		0,
	)
	if errno != 0 {
		return fmt.Errorf("futex wake: %w", errno)
	}
	return nil
}
