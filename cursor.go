package shmvec

import (
	"github.com/hupe1980/shmvec/internal/mmap"
)

// cursor is the untyped core of a view: one window of address space, the
// index of the window currently mapped into it, and a logical position.
// A cursor is not safe for concurrent use.
type cursor struct {
	vec *vector
	win mmap.Window

	window uint64 // mapped window, valid when mapped
	mapped bool
	index  uint64 // logical position, may equal size (end)

	writing bool
	seen    uint64 // size observed by the last WaitRead
	err     error
	closed  bool
}

func newCursor(v *vector) (*cursor, error) {
	var (
		win mmap.Window
		err error
	)
	length := int(v.geo.WindowStride)
	if v.copyWindows {
		win, err = mmap.NewCopyWindow(v.file, v.file, length)
	} else {
		win, err = mmap.NewWindow(v.file, length)
	}
	if err != nil {
		return nil, &MapError{Op: "reserve", ID: v.id, cause: err}
	}

	c := &cursor{vec: v, win: win}
	// Window 0 is mapped (and committed) up front so a first push does not slide.
	if err := c.slide(0, false); err != nil {
		_ = win.Close()
		return nil, err
	}
	v.cb.AddUser(1)
	v.views.Add(1)
	return c, nil
}

// clone opens an independent mapping at the same position.
func (c *cursor) clone() (*cursor, error) {
	if c.closed {
		return nil, ErrClosed
	}
	d, err := newCursor(c.vec)
	if err != nil {
		return nil, err
	}
	if c.mapped && c.window != 0 {
		if err := d.slide(c.window, false); err != nil {
			_ = d.close()
			return nil, err
		}
	}
	d.index = c.index
	d.seen = c.seen
	return d, nil
}

// slide maps window target into the cursor's address space, committing every
// window up to and including target first. An appending slide during a write
// session signals update so a reader waiting across the boundary wakes.
func (c *cursor) slide(target uint64, appending bool) error {
	if c.closed {
		return ErrClosed
	}
	if c.mapped && target == c.window {
		return nil
	}
	g := c.vec.geo
	if target >= g.MaxWindows() {
		return ErrOutOfRange
	}
	if err := c.vec.commitTo((target + 1) * uint64(g.WindowBytes)); err != nil {
		return err
	}

	off := g.WindowOffset(target)
	if err := c.win.Map(off); err != nil {
		c.mapped = false
		c.vec.mc.RecordSlide(appending, err)
		c.vec.log.LogSlide(c.vec.id, target, off, err)
		return &MapError{Op: "map", ID: c.vec.id, Offset: off, cause: err}
	}
	c.window, c.mapped = target, true
	c.vec.mc.RecordSlide(appending, nil)
	c.vec.log.LogSlide(c.vec.id, target, off, nil)

	if appending && c.writing {
		return c.vec.update()
	}
	return nil
}

// locate maps the window holding element i and returns the window bytes and
// the slot offset within them.
func (c *cursor) locate(i uint64, appending bool) ([]byte, int, error) {
	w, sub := c.vec.geo.WindowOf(i)
	if err := c.slide(w, appending); err != nil {
		return nil, 0, err
	}
	return c.win.Bytes(), int(sub) * int(c.vec.geo.ElementSize), nil
}

func (c *cursor) size() uint64 { return c.vec.cb.Size() }

func (c *cursor) elementSize() int { return int(c.vec.geo.ElementSize) }

// read positions the cursor on published element i and returns its slot.
// The slot is valid until the cursor moves to another window.
func (c *cursor) read(i uint64) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if i >= c.size() {
		return nil, ErrOutOfRange
	}
	b, lo, err := c.locate(i, false)
	if err != nil {
		return nil, err
	}
	hi := lo + c.elementSize()
	if err := c.win.Refresh(lo, hi); err != nil {
		return nil, &MapError{Op: "refresh", ID: c.vec.id, Offset: int64(lo), cause: err}
	}
	c.index = i
	return b[lo:hi], nil
}

// write overwrites published element i.
func (c *cursor) write(i uint64, src []byte) error {
	if c.closed {
		return ErrClosed
	}
	if i >= c.size() {
		return ErrOutOfRange
	}
	b, lo, err := c.locate(i, false)
	if err != nil {
		return err
	}
	if err := c.store(b, lo, src); err != nil {
		return err
	}
	c.index = i
	return nil
}

func (c *cursor) store(b []byte, lo int, src []byte) error {
	hi := lo + len(src)
	copy(b[lo:hi], src)
	if err := c.win.Flush(lo, hi); err != nil {
		return &MapError{Op: "flush", ID: c.vec.id, Offset: int64(lo), cause: err}
	}
	return nil
}

// pushBack writes src into slot size and then publishes size+1.
func (c *cursor) pushBack(src []byte) error {
	if c.closed {
		return ErrClosed
	}
	cb := c.vec.cb
	i := cb.Size()
	if i >= cb.MaxElements() {
		return ErrCapacityExceeded
	}
	b, lo, err := c.locate(i, true)
	if err != nil {
		return err
	}
	if err := c.store(b, lo, src); err != nil {
		return err
	}
	// Release store: the slot bytes are visible before the new size.
	cb.PublishSize(i + 1)
	c.index = i
	return nil
}

// appendBytes pushes len(src)/elementSize elements, one window at a time.
// Nothing is written if they do not all fit.
func (c *cursor) appendBytes(src []byte) error {
	if c.closed {
		return ErrClosed
	}
	es := c.elementSize()
	count := uint64(len(src) / es)
	if count == 0 {
		return nil
	}
	cb := c.vec.cb
	i := cb.Size()
	if i+count > cb.MaxElements() {
		return ErrCapacityExceeded
	}

	we := uint64(c.vec.geo.WindowElements)
	for done := uint64(0); done < count; {
		_, sub := c.vec.geo.WindowOf(i)
		n := min(count-done, we-uint64(sub))
		b, lo, err := c.locate(i, true)
		if err != nil {
			return err
		}
		if err := c.store(b, lo, src[done*uint64(es):(done+n)*uint64(es)]); err != nil {
			return err
		}
		i += n
		done += n
		cb.PublishSize(i)
	}
	c.index = i - 1
	return nil
}

// popBack copies the last element into dst and then shrinks size.
func (c *cursor) popBack(dst []byte) error {
	if c.closed {
		return ErrClosed
	}
	n := c.size()
	if n == 0 {
		return ErrEmpty
	}
	b, err := c.read(n - 1)
	if err != nil {
		return err
	}
	copy(dst, b)
	c.vec.cb.PublishSize(n - 1)
	return nil
}

// reserve commits enough windows for n elements without publishing them,
// by sliding to the last window needed and back.
func (c *cursor) reserve(n uint64) error {
	if c.closed {
		return ErrClosed
	}
	if n > c.vec.geo.MaxElements {
		return ErrCapacityExceeded
	}
	if n == 0 {
		return nil
	}
	orig, wasMapped := c.window, c.mapped
	if err := c.slide(c.vec.geo.WindowsFor(n)-1, false); err != nil {
		return err
	}
	if wasMapped {
		return c.slide(orig, false)
	}
	return nil
}

// truncate shrinks size to n if n is smaller and clamps the position.
func (c *cursor) truncate(n uint64) {
	if c.closed {
		return
	}
	if n >= c.size() {
		return
	}
	c.vec.cb.PublishSize(n)
	if c.index >= n {
		// Last element, or 0 when the vector is now empty.
		c.index = max(n, 1) - 1
	}
}

// capacity is the number of elements the committed windows hold.
func (c *cursor) capacity() uint64 {
	g := c.vec.geo
	windows := c.vec.cb.CommittedBytes() / uint64(g.WindowBytes)
	return min(windows*uint64(g.WindowElements), g.MaxElements)
}

// seek moves to index i, which may equal size.
func (c *cursor) seek(i uint64) error {
	if c.closed {
		return ErrClosed
	}
	n := c.size()
	if i > n {
		return ErrOutOfRange
	}
	if i == n {
		c.index = i
		return nil
	}
	_, err := c.read(i)
	return err
}

// next advances one element. It reports false at the end or on error.
func (c *cursor) next() bool {
	if c.closed {
		return false
	}
	n := c.size()
	if c.index+1 >= n {
		c.index = n
		return false
	}
	if _, err := c.read(c.index + 1); err != nil {
		c.err = err
		return false
	}
	return true
}

// prev steps back one element. It reports false at index 0 or on error.
func (c *cursor) prev() bool {
	if c.closed || c.index == 0 {
		return false
	}
	n := c.size()
	if n == 0 {
		return false
	}
	if _, err := c.read(min(c.index-1, n-1)); err != nil {
		c.err = err
		return false
	}
	return true
}

func (c *cursor) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.mapped = false
	err := c.win.Close()
	c.vec.cb.AddUser(-1)
	c.vec.views.Add(-1)
	return err
}
