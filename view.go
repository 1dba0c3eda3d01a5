package shmvec

import (
	"iter"
	"time"
	"unsafe"
)

// View is a typed, process-local cursor over one shared vector. It owns a
// single window of address space and slides it as the position moves, so its
// footprint is one window regardless of the vector's length.
//
// A View is not safe for concurrent use. Open one view per goroutine, or
// Clone an existing one.
type View[T any] struct {
	handle
}

func bytesOf[T any](p *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), unsafe.Sizeof(*p))
}

func sliceBytes[T any](s []T) []byte {
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

func ptrAt[T any](b []byte) *T {
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}

// PushBack appends x. It fails with ErrCapacityExceeded at MaxLen.
func (v *View[T]) PushBack(x T) error {
	return v.c.pushBack(bytesOf(&x))
}

// Append pushes xs in order, filling each window with one copy.
// Nothing is appended if xs does not fit.
func (v *View[T]) Append(xs ...T) error {
	return v.c.appendBytes(sliceBytes(xs))
}

// PopBack removes and returns the last element.
func (v *View[T]) PopBack() (T, error) {
	var x T
	err := v.c.popBack(bytesOf(&x))
	return x, err
}

// At returns element i.
func (v *View[T]) At(i int) (T, error) {
	p, err := v.Ptr(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

// Ptr returns a pointer to element i inside the current window. It is valid
// until the view moves to another window. Writes through it reach other
// processes only when windows are mapped; Set works in every mode.
func (v *View[T]) Ptr(i int) (*T, error) {
	if i < 0 {
		return nil, ErrOutOfRange
	}
	b, err := v.c.read(uint64(i))
	if err != nil {
		return nil, err
	}
	return ptrAt[T](b), nil
}

// Set overwrites published element i.
func (v *View[T]) Set(i int, x T) error {
	if i < 0 {
		return ErrOutOfRange
	}
	return v.c.write(uint64(i), bytesOf(&x))
}

// Front returns the first element.
func (v *View[T]) Front() (T, error) {
	if v.Empty() {
		var zero T
		return zero, ErrEmpty
	}
	return v.At(0)
}

// Back returns the last element.
func (v *View[T]) Back() (T, error) {
	n := v.Len()
	if n == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return v.At(n - 1)
}

// Value returns the element at the current position.
func (v *View[T]) Value() (T, error) {
	return v.At(v.Index())
}

// All iterates the elements published when iteration starts. Elements
// pushed later are not visited; see Consume for following a live writer.
// Errors stop the iteration and are reported by Err.
func (v *View[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		n := v.c.size()
		for i := uint64(0); i < n; i++ {
			b, err := v.c.read(i)
			if err != nil {
				v.c.err = err
				return
			}
			if !yield(int(i), *ptrAt[T](b)) {
				return
			}
		}
	}
}

// Backward iterates the published elements from last to first.
func (v *View[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := v.c.size(); i > 0; i-- {
			b, err := v.c.read(i - 1)
			if err != nil {
				v.c.err = err
				return
			}
			if !yield(int(i-1), *ptrAt[T](b)) {
				return
			}
		}
	}
}

// Consume follows a live writer from the current position: it calls fn for
// every published element, waits with WaitRead when it catches up, and
// returns nil once the writer completes and the rest is drained. It returns
// ErrTimeout if a single wait exceeds timeout.
func (v *View[T]) Consume(timeout time.Duration, fn func(i int, x T) error) error {
	v.StartRead()
	defer v.EndRead()

	i := v.c.index
	drain := func() error {
		n := v.c.size()
		for ; i < n; i++ {
			b, err := v.c.read(i)
			if err != nil {
				return err
			}
			if err := fn(int(i), *ptrAt[T](b)); err != nil {
				return err
			}
		}
		v.c.index = i
		v.c.seen = n
		return nil
	}

	for {
		if err := drain(); err != nil {
			return err
		}
		res, err := v.WaitRead(timeout)
		switch res {
		case WaitUpdated:
		case WaitCompleted:
			return drain()
		case WaitTimeout:
			return ErrTimeout
		default:
			return err
		}
	}
}

// Clone opens an independent view at the same position.
func (v *View[T]) Clone() (*View[T], error) {
	c, err := v.c.clone()
	if err != nil {
		return nil, err
	}
	return &View[T]{handle{c}}, nil
}
