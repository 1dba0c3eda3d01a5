package shmvec

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when an append or reservation would pass MaxElements.
	ErrCapacityExceeded = errors.New("shmvec: capacity exceeded")
	// ErrEmpty is returned by PopBack, Front and Back on an empty vector.
	ErrEmpty = errors.New("shmvec: vector is empty")
	// ErrInUse is returned when Free is refused because views or a reader are active.
	ErrInUse = errors.New("shmvec: vector in use")
	// ErrNotFound is returned for an id with no live vector.
	ErrNotFound = errors.New("shmvec: vector not found")
	// ErrClosed is returned on a closed registry or view.
	ErrClosed = errors.New("shmvec: closed")
	// ErrOutOfRange is returned for an index at or beyond the published size.
	ErrOutOfRange = errors.New("shmvec: index out of range")
	// ErrTimeout is returned when a blocking wait runs out of time.
	ErrTimeout = errors.New("shmvec: wait timed out")
	// ErrNotOwner is returned by Alloc and Free on an attached registry.
	ErrNotOwner = errors.New("shmvec: registry does not own its vectors")
	// ErrInvalidGeometry is returned for an unusable element size, capacity or window size.
	ErrInvalidGeometry = errors.New("shmvec: invalid geometry")
	// ErrInvalidElementType is returned for element types that cannot live in shared memory.
	ErrInvalidElementType = errors.New("shmvec: invalid element type")
	// ErrTypeMismatch is matched by *TypeMismatchError.
	ErrTypeMismatch = errors.New("shmvec: element type mismatch")
	// ErrMapFailure is matched by *MapError.
	ErrMapFailure = errors.New("shmvec: mapping failed")
	// ErrWaitFailure is matched by *WaitError.
	ErrWaitFailure = errors.New("shmvec: wait failed")
)

// TypeMismatchError is returned by Lookup when the requested element type
// does not match the one the vector was allocated with.
type TypeMismatchError struct {
	ID            VectorID
	StoredSize    uint32
	RequestedSize uint32
	StoredTag     uint64
	RequestedTag  uint64
}

func (e *TypeMismatchError) Error() string {
	if e.StoredSize != e.RequestedSize {
		return fmt.Sprintf("shmvec: vector %d holds %d-byte elements, requested %d", e.ID, e.StoredSize, e.RequestedSize)
	}
	return fmt.Sprintf("shmvec: vector %d type tag %#x, requested %#x", e.ID, e.StoredTag, e.RequestedTag)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// MapError reports a failure of the virtual memory layer.
//
// The original underlying error can be accessed via errors.Unwrap.
type MapError struct {
	Op     string // reserve, map, commit, header
	ID     VectorID
	Offset int64
	cause  error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("shmvec: %s vector %d at offset %d: %v", e.Op, e.ID, e.Offset, e.cause)
}

func (e *MapError) Unwrap() error { return e.cause }

func (e *MapError) Is(target error) bool { return target == ErrMapFailure }

// WaitError reports a failure of a synchronization wait.
//
// The original underlying error can be accessed via errors.Unwrap.
type WaitError struct {
	ID    VectorID
	cause error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("shmvec: wait on vector %d: %v", e.ID, e.cause)
}

func (e *WaitError) Unwrap() error { return e.cause }

func (e *WaitError) Is(target error) bool { return target == ErrWaitFailure }
