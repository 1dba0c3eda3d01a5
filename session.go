package shmvec

import (
	"time"
)

// WaitResult is the outcome of WaitRead.
type WaitResult int

const (
	// WaitFailed means the wait itself failed; the error says why.
	WaitFailed WaitResult = iota
	// WaitUpdated means the size changed since the last observation.
	WaitUpdated
	// WaitCompleted means the writer ended its session.
	WaitCompleted
	// WaitTimeout means nothing happened before the timeout.
	WaitTimeout
)

func (r WaitResult) String() string {
	switch r {
	case WaitUpdated:
		return "updated"
	case WaitCompleted:
		return "completed"
	case WaitTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

// Infinite makes WaitRead block until the vector is updated or completed.
const Infinite time.Duration = -1

// handle carries the operations View and RawView share.
type handle struct {
	c *cursor
}

// ID returns the vector id.
func (h handle) ID() VectorID { return h.c.vec.id }

// Len returns the published element count.
func (h handle) Len() int { return int(h.c.size()) }

// Empty reports whether no elements are published.
func (h handle) Empty() bool { return h.c.size() == 0 }

// Cap returns how many elements fit in the committed windows.
func (h handle) Cap() int { return int(h.c.capacity()) }

// MaxLen returns the capacity fixed at allocation.
func (h handle) MaxLen() int { return int(h.c.vec.geo.MaxElements) }

// WindowElements returns the number of elements per window.
func (h handle) WindowElements() int { return int(h.c.vec.geo.WindowElements) }

// CommittedBytes returns the committed high-water mark in window-byte units.
func (h handle) CommittedBytes() uint64 { return h.c.vec.cb.CommittedBytes() }

// UserCount returns the number of open views in all processes.
func (h handle) UserCount() int { return int(h.c.vec.cb.UserCount()) }

// Reserve commits windows for n elements without publishing any.
func (h handle) Reserve(n int) error {
	if n < 0 {
		return ErrOutOfRange
	}
	return h.c.reserve(uint64(n))
}

// Truncate shrinks the vector to n elements if it is longer. A position
// past the new size moves to the last remaining element.
func (h handle) Truncate(n int) {
	h.c.truncate(uint64(max(n, 0)))
}

// Clear sets the size to zero and the position to 0.
func (h handle) Clear() { h.c.truncate(0) }

// Index returns the current position.
func (h handle) Index() int { return int(h.c.index) }

// Seek moves to element i. Seeking to Len() positions the view at the end.
func (h handle) Seek(i int) error {
	if i < 0 {
		return ErrOutOfRange
	}
	return h.c.seek(uint64(i))
}

// Next moves to the following element and reports whether it exists.
// Only windows are remapped, and only when a boundary is crossed.
func (h handle) Next() bool { return h.c.next() }

// Prev moves to the preceding element and reports whether it exists.
func (h handle) Prev() bool { return h.c.prev() }

// AtEnd reports whether the position is at or past the published size.
func (h handle) AtEnd() bool { return h.c.index >= h.c.size() }

// Err returns the first error met by Next, Prev or an iterator.
func (h handle) Err() error { return h.c.err }

// StartWrite begins a write session. While it lasts, pushes that move to a
// new window also signal update. A completion from an earlier session that
// no reader consumed is discarded, so it cannot end the new session early.
func (h handle) StartWrite() {
	h.c.writing = true
	h.c.vec.resetComplete()
}

// EndWrite ends the write session and signals completion.
func (h handle) EndWrite() error {
	h.c.writing = false
	return h.c.vec.complete()
}

// Complete is EndWrite.
func (h handle) Complete() error { return h.EndWrite() }

// Update wakes a reader blocked in WaitRead.
func (h handle) Update() error { return h.c.vec.update() }

// Writing reports whether a write session is active on this view.
func (h handle) Writing() bool { return h.c.writing }

// StartRead marks a reader session active. Free is refused while it lasts.
func (h handle) StartRead() { h.c.vec.cb.SetReading(true) }

// WaitRead blocks until the writer publishes more elements and calls
// Update, the writer completes its session, or timeout passes. A zero
// timeout polls; Infinite waits without limit. Completion ends the reader
// session.
func (h handle) WaitRead(timeout time.Duration) (WaitResult, error) {
	if h.c.closed {
		return WaitFailed, ErrClosed
	}
	res, n, err := h.c.vec.waitRead(h.c.seen, timeout)
	h.c.seen = n
	return res, err
}

// EndRead ends the reader session.
func (h handle) EndRead() { h.c.vec.cb.SetReading(false) }

// Reading reports whether any process has a reader session active.
func (h handle) Reading() bool { return h.c.vec.cb.Reading() }

// Close releases the view's window. It is idempotent.
func (h handle) Close() error { return h.c.close() }
