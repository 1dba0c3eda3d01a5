package shmvec

// RawView is a View over element bytes, for tools that do not know the
// element type. Slices it returns alias the mapped window and are valid until
// the view moves to another window.
type RawView struct {
	handle
}

// ElementSize returns the element size in bytes.
func (r *RawView) ElementSize() int { return r.c.elementSize() }

// TypeTag returns the element type tag, 0 if the vector is untagged.
func (r *RawView) TypeTag() uint64 { return r.c.vec.geo.TypeTag }

// At returns the bytes of element i.
func (r *RawView) At(i int) ([]byte, error) {
	if i < 0 {
		return nil, ErrOutOfRange
	}
	return r.c.read(uint64(i))
}

// PushBack appends one element.
func (r *RawView) PushBack(elem []byte) error {
	if len(elem) != r.c.elementSize() {
		return ErrInvalidElementType
	}
	return r.c.pushBack(elem)
}

// Append appends len(elems)/ElementSize elements.
func (r *RawView) Append(elems []byte) error {
	if len(elems)%r.c.elementSize() != 0 {
		return ErrInvalidElementType
	}
	return r.c.appendBytes(elems)
}

// PopBack removes the last element and returns a copy of it.
func (r *RawView) PopBack() ([]byte, error) {
	b := make([]byte, r.c.elementSize())
	if err := r.c.popBack(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Window returns the published bytes of window w.
func (r *RawView) Window(w int) ([]byte, error) {
	if w < 0 {
		return nil, ErrOutOfRange
	}
	we := uint64(r.c.vec.geo.WindowElements)
	start := uint64(w) * we
	n := r.c.size()
	if start >= n {
		return nil, ErrOutOfRange
	}
	count := min(n-start, we)
	b, lo, err := r.c.locate(start, false)
	if err != nil {
		return nil, err
	}
	hi := lo + int(count)*r.c.elementSize()
	if err := r.c.win.Refresh(lo, hi); err != nil {
		return nil, &MapError{Op: "refresh", ID: r.c.vec.id, Offset: int64(lo), cause: err}
	}
	r.c.index = start
	return b[lo:hi], nil
}

// Clone opens an independent view at the same position.
func (r *RawView) Clone() (*RawView, error) {
	c, err := r.c.clone()
	if err != nil {
		return nil, err
	}
	return &RawView{handle{c}}, nil
}
