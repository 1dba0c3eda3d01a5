package event

import (
	"errors"
	"sync/atomic"
	"time"
)

// Infinite makes WaitAny block until a state is signaled.
const Infinite time.Duration = -1

// ErrTimeout is returned when no event is signaled before the timeout.
var ErrTimeout = errors.New("event: wait timed out")

// Signal sets state and wakes all waiters on seq.
func Signal(state, seq *uint32) error {
	atomic.StoreUint32(state, 1)
	atomic.AddUint32(seq, 1)
	return wake(seq)
}

// Reset clears state without waking anyone.
func Reset(state *uint32) {
	atomic.StoreUint32(state, 0)
}

// IsSet reports whether state is signaled without consuming it.
func IsSet(state *uint32) bool {
	return atomic.LoadUint32(state) != 0
}

// WaitAny blocks until one of states is signaled, clears it and returns its index.
// Lower indexes win when several states are set. A zero timeout only polls;
// Infinite waits forever.
func WaitAny(seq *uint32, timeout time.Duration, states ...*uint32) (int, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		// Load the wake word before checking states: a Signal that lands after
		// the check changes seq and makes the wait below return at once.
		s := atomic.LoadUint32(seq)
		for i, st := range states {
			if atomic.CompareAndSwapUint32(st, 1, 0) {
				return i, nil
			}
		}

		var remaining time.Duration
		switch {
		case timeout == 0:
			return -1, ErrTimeout
		case timeout > 0:
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return -1, ErrTimeout
			}
		default:
			remaining = Infinite
		}

		if err := wait(seq, s, remaining); err != nil && !errors.Is(err, ErrTimeout) {
			return -1, err
		}
	}
}
