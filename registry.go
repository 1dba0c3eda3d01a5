package shmvec

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/shmvec/internal/freelist"
	"github.com/hupe1980/shmvec/internal/fs"
	"github.com/hupe1980/shmvec/internal/hash"
	"github.com/hupe1980/shmvec/internal/layout"
	"github.com/hupe1980/shmvec/internal/mmap"
)

// fileExt is the backing file extension.
const fileExt = ".vec"

// VectorID identifies a live vector within a namespace. Ids of freed vectors
// are reused, lowest first.
type VectorID uint32

func (id VectorID) String() string { return strconv.FormatUint(uint64(id), 10) }

// AllocRequest describes a vector to allocate.
type AllocRequest struct {
	ElementSize     uint32
	MaxElements     uint64
	WindowElements  uint32
	InitialCapacity uint64
	// TypeTag identifies the element type; 0 disables the check in Lookup.
	TypeTag uint64
}

// Registry is the table of vectors in one namespace. The owning side,
// created with NewRegistry, allocates and frees; the other side, created with
// Attach, opens views on vectors by id.
//
// Registry methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	opts    options
	log     *Logger
	dir     string
	owner   bool
	closed  bool
	vectors map[VectorID]*vector
	free    *freelist.List
	next    VectorID
}

// NewRegistry creates the owning registry of a namespace.
func NewRegistry(optFns ...Option) (*Registry, error) {
	o := applyOptions(optFns)
	r := newRegistry(o, true)
	if err := o.fsys.MkdirAll(r.dir, fs.DirPerm); err != nil {
		return nil, fmt.Errorf("shmvec: create namespace: %w", err)
	}
	r.log.Info("registry created", "dir", r.dir)
	return r, nil
}

// Attach opens the namespace created by another process's NewRegistry.
func Attach(namespace string, optFns ...Option) (*Registry, error) {
	o := applyOptions(append(slices.Clone(optFns), WithNamespace(namespace)))
	r := newRegistry(o, false)
	fi, err := o.fsys.Stat(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: namespace %q", ErrNotFound, namespace)
		}
		return nil, fmt.Errorf("shmvec: attach: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("shmvec: attach: %s is not a directory", r.dir)
	}
	r.log.Info("registry attached", "dir", r.dir)
	return r, nil
}

func newRegistry(o options, owner bool) *Registry {
	return &Registry{
		opts:    o,
		log:     o.logger.WithNamespace(o.namespace),
		dir:     filepath.Join(o.dir, o.namespace),
		owner:   owner,
		vectors: make(map[VectorID]*vector),
		free:    freelist.New(),
	}
}

// Namespace returns the registry namespace.
func (r *Registry) Namespace() string { return r.opts.namespace }

// Dir returns the directory holding the backing files.
func (r *Registry) Dir() string { return r.dir }

// Owner reports whether this registry allocates and frees.
func (r *Registry) Owner() bool { return r.owner }

func (r *Registry) pathFor(id VectorID) string {
	return filepath.Join(r.dir, id.String()+fileExt)
}

// Alloc creates a vector sized for req.MaxElements, rounded up to whole
// windows, and commits windows for req.InitialCapacity elements. A failure
// leaves no trace: the backing file is removed and the id returns to the pool.
func (r *Registry) Alloc(req AllocRequest) (VectorID, error) {
	start := time.Now()
	id, reused, err := r.alloc(req)
	r.opts.metricsCollector.RecordAlloc(time.Since(start), err)
	r.log.LogAlloc(id, req, reused, err)
	return id, err
}

func (r *Registry) alloc(req AllocRequest) (VectorID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, false, ErrClosed
	}
	if !r.owner {
		return 0, false, ErrNotOwner
	}
	geo, err := layout.NewGeometry(req.ElementSize, req.MaxElements, req.WindowElements, mmap.Granularity())
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
	}
	if req.InitialCapacity > req.MaxElements {
		return 0, false, fmt.Errorf("%w: initial capacity %d above max elements %d", ErrCapacityExceeded, req.InitialCapacity, req.MaxElements)
	}
	geo.TypeTag = req.TypeTag

	id, reused := r.takeID()
	v, err := r.create(id, geo)
	if err == nil {
		if err = v.commitTo(geo.WindowsFor(req.InitialCapacity) * uint64(geo.WindowBytes)); err != nil {
			_ = v.destroy(r.opts.fsys)
		}
	}
	if err != nil {
		r.free.Push(uint32(id))
		return 0, reused, err
	}
	r.vectors[id] = v
	return id, reused, nil
}

func (r *Registry) takeID() (VectorID, bool) {
	if id, ok := r.free.Pop(); ok {
		return VectorID(id), true
	}
	r.next++
	return r.next, false
}

// create makes the backing file and initializes its control block.
func (r *Registry) create(id VectorID, geo layout.Geometry) (*vector, error) {
	path := r.pathFor(id)
	f, err := fs.CreateBacking(r.opts.fsys, path, geo.FileSize())
	if err != nil {
		return nil, &MapError{Op: "reserve", ID: id, Offset: geo.FileSize(), cause: err}
	}
	hdr, cb, err := mapHeader(id, f, int(geo.HeaderBytes))
	if err != nil {
		_ = f.Close()
		_ = r.opts.fsys.Remove(path)
		return nil, err
	}
	cb.Init(geo, uint32(os.Getpid()))
	return r.newVector(id, path, f, hdr, cb, geo), nil
}

func (r *Registry) newVector(id VectorID, path string, f fs.File, hdr *mmap.Mapping, cb *layout.ControlBlock, geo layout.Geometry) *vector {
	return &vector{
		id:          id,
		path:        path,
		file:        f,
		hdr:         hdr,
		cb:          cb,
		geo:         geo,
		log:         r.log.WithVector(id),
		mc:          r.opts.metricsCollector,
		rc:          r.opts.rc,
		copyWindows: r.opts.copyWindows,
	}
}

// Free releases a vector and returns its id to the pool. It refuses, with
// ErrInUse, while any process holds a view or a reader session is active.
func (r *Registry) Free(id VectorID) (bool, error) {
	freed, err := r.freeVector(id)
	r.opts.metricsCollector.RecordFree(freed, err)
	r.log.LogFree(id, freed, err)
	return freed, err
}

func (r *Registry) freeVector(id VectorID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrClosed
	}
	if !r.owner {
		return false, ErrNotOwner
	}
	v, ok := r.vectors[id]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err := inUse(v); err != nil {
		return false, err
	}

	v.cb.MarkFreed()
	delete(r.vectors, id)
	if err := v.destroy(r.opts.fsys); err != nil {
		r.log.Warn("backing file cleanup failed", "vec_id", id, "error", err)
	}
	r.free.Push(uint32(id))
	return true, nil
}

func inUse(v *vector) error {
	if n := v.cb.UserCount(); n > 0 {
		return fmt.Errorf("%w: vector %d has %d open views", ErrInUse, v.id, n)
	}
	if v.cb.Reading() {
		return fmt.Errorf("%w: vector %d has an active reader", ErrInUse, v.id)
	}
	return nil
}

// AllocOf allocates a vector of T. The element size and a tag derived from
// T's name are recorded for Lookup.
func AllocOf[T any](r *Registry, maxElements uint64, windowElements uint32, initialCapacity uint64) (VectorID, error) {
	req, err := RequestOf[T](maxElements, windowElements, initialCapacity)
	if err != nil {
		return 0, err
	}
	return r.Alloc(req)
}

// RequestOf builds the AllocRequest AllocOf would use for T.
func RequestOf[T any](maxElements uint64, windowElements uint32, initialCapacity uint64) (AllocRequest, error) {
	size, tag, err := elementInfo[T]()
	if err != nil {
		return AllocRequest{}, err
	}
	return AllocRequest{
		ElementSize:     size,
		MaxElements:     maxElements,
		WindowElements:  windowElements,
		InitialCapacity: initialCapacity,
		TypeTag:         tag,
	}, nil
}

// Lookup opens a typed view on vector id. It fails with *TypeMismatchError
// unless the stored element size equals T's size, and, when both sides carry
// a type tag, the tags agree.
func Lookup[T any](r *Registry, id VectorID) (*View[T], error) {
	size, tag, err := elementInfo[T]()
	if err != nil {
		return nil, err
	}
	c, err := r.open(id, func(g layout.Geometry) error {
		if g.ElementSize != size || (tag != 0 && g.TypeTag != 0 && g.TypeTag != tag) {
			return &TypeMismatchError{
				ID:            id,
				StoredSize:    g.ElementSize,
				RequestedSize: size,
				StoredTag:     g.TypeTag,
				RequestedTag:  tag,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &View[T]{handle{c}}, nil
}

// LookupRaw opens an untyped view on vector id.
func (r *Registry) LookupRaw(id VectorID) (*RawView, error) {
	c, err := r.open(id, nil)
	if err != nil {
		return nil, err
	}
	return &RawView{handle{c}}, nil
}

func (r *Registry) open(id VectorID, check func(layout.Geometry) error) (*cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	v, err := r.vector(id)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(v.geo); err != nil {
			return nil, err
		}
	}
	return newCursor(v)
}

// vector returns the handle for id, mapping it on the attached side.
// r.mu must be held.
func (r *Registry) vector(id VectorID) (*vector, error) {
	v, ok := r.vectors[id]
	if ok && !v.cb.Freed() {
		return v, nil
	}
	if r.owner {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if ok {
		// Freed by the owner; the id may name a new file now.
		if v.views.Load() > 0 {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		_ = v.release()
		delete(r.vectors, id)
	}

	v, err := r.attachVector(id)
	if err != nil {
		return nil, err
	}
	r.vectors[id] = v
	return v, nil
}

func (r *Registry) attachVector(id VectorID) (*vector, error) {
	path := r.pathFor(id)
	f, err := fs.OpenBacking(r.opts.fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, &MapError{Op: "open", ID: id, cause: err}
	}
	hdr, cb, err := mapHeader(id, f, mmap.Granularity())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	fail := func(err error) (*vector, error) {
		_ = hdr.Close()
		_ = f.Close()
		return nil, err
	}
	if err := cb.Validate(); err != nil {
		return fail(fmt.Errorf("shmvec: vector %d: %w", id, err))
	}
	if cb.Freed() {
		return fail(fmt.Errorf("%w: %d", ErrNotFound, id))
	}
	geo := cb.Geometry()
	if geo.HeaderBytes != uint64(mmap.Granularity()) {
		// Written on a platform with a different mapping granularity.
		return fail(fmt.Errorf("%w: header of %d bytes", ErrInvalidGeometry, geo.HeaderBytes))
	}
	return r.newVector(id, path, f, hdr, cb, geo), nil
}

// IDs returns the live vector ids in ascending order.
func (r *Registry) IDs() ([]VectorID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.owner {
		ids := make([]VectorID, 0, len(r.vectors))
		for id := range r.vectors {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return ids, nil
	}

	entries, err := r.opts.fsys.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var ids []VectorID
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), fileExt)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(name, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, VectorID(n))
	}
	slices.Sort(ids)
	return ids, nil
}

// Stat describes vector id.
func (r *Registry) Stat(id VectorID) (Stat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Stat{}, ErrClosed
	}
	v, err := r.vector(id)
	if err != nil {
		return Stat{}, err
	}
	return v.stat(), nil
}

// Close frees every vector the owner can free and drops the mappings of an
// attached registry. Vectors still in use stay on disk and mapped; they are
// reported with ErrInUse.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for id, v := range r.vectors {
		if r.owner {
			if err := inUse(v); err != nil {
				errs = append(errs, err)
				continue
			}
			v.cb.MarkFreed()
			errs = append(errs, v.destroy(r.opts.fsys))
		} else {
			if n := v.views.Load(); n > 0 {
				errs = append(errs, fmt.Errorf("%w: vector %d has %d local views", ErrInUse, id, n))
				continue
			}
			errs = append(errs, v.release())
		}
		delete(r.vectors, id)
	}
	if r.owner && len(r.vectors) == 0 {
		// Fails harmlessly if foreign files remain.
		_ = r.opts.fsys.Remove(r.dir)
	}
	r.log.Info("registry closed", "remaining", len(r.vectors))
	return errors.Join(errs...)
}

// elementInfo returns T's size and type tag, rejecting types that hold
// pointers, which are meaningless in another address space.
func elementInfo[T any]() (uint32, uint64, error) {
	t := reflect.TypeFor[T]()
	if t.Size() == 0 || t.Size() > math.MaxUint32 {
		return 0, 0, fmt.Errorf("%w: %s has size %d", ErrInvalidElementType, t, t.Size())
	}
	if hasPointers(t) {
		return 0, 0, fmt.Errorf("%w: %s contains pointers", ErrInvalidElementType, t)
	}
	return uint32(t.Size()), hash.TypeTag(typeName(t)), nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

func typeName(t reflect.Type) string {
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
