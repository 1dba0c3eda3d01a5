package layout

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"unsafe"
)

const (
	// Magic identifies a vector backing file.
	Magic = "SHMVEC\x00\x00"

	// Version is the current control block version.
	Version = uint32(1)

	// ControlBlockSize is the size of the control block in bytes.
	ControlBlockSize = 128
)

var (
	// ErrBadMagic is returned when a backing file does not start with Magic.
	ErrBadMagic = errors.New("layout: invalid magic")
	// ErrBadVersion is returned for an unsupported control block version.
	ErrBadVersion = errors.New("layout: unsupported version")
	// ErrBadGeometry is returned when geometry fields are inconsistent.
	ErrBadGeometry = errors.New("layout: inconsistent geometry")
)

// ControlBlock is the fixed-layout state of one vector.
// Offsets are listed in Fields and checked by tests against unsafe.Offsetof.
type ControlBlock struct {
	magic          [8]byte  // 0x00
	version        uint32   // 0x08
	elementSize    uint32   // 0x0C
	size           uint64   // 0x10: published element count
	committedBytes uint64   // 0x18: monotonic, multiple of windowBytes
	maxElements    uint64   // 0x20
	windowElements uint32   // 0x28
	windowBytes    uint32   // 0x2C
	windowStride   uint64   // 0x30
	headerBytes    uint64   // 0x38
	typeTag        uint64   // 0x40
	userCount      int32    // 0x48
	reading        uint32   // 0x4C
	updateEvent    uint32   // 0x50
	completeEvent  uint32   // 0x54
	wakeSeq        uint32   // 0x58
	freed          uint32   // 0x5C
	ownerPID       uint32   // 0x60
	flags          uint32   // 0x64
	reserved       [24]byte // 0x68-0x7F
}

// Field describes one control block field.
type Field struct {
	Name   string
	Offset uintptr
	Width  uintptr
	Desc   string
}

// Fields is the byte-for-byte description of ControlBlock.
var Fields = []Field{
	{"magic", 0x00, 8, "\"SHMVEC\\0\\0\""},
	{"version", 0x08, 4, "control block version"},
	{"element_size", 0x0C, 4, "bytes per element"},
	{"size", 0x10, 8, "published element count"},
	{"committed_bytes", 0x18, 8, "committed high-water mark"},
	{"max_elements", 0x20, 8, "hard capacity"},
	{"window_elements", 0x28, 4, "elements per window"},
	{"window_bytes", 0x2C, 4, "logical bytes per window"},
	{"window_stride", 0x30, 8, "mapped bytes per window"},
	{"header_bytes", 0x38, 8, "offset of window 0"},
	{"type_tag", 0x40, 8, "element type tag, 0 if untagged"},
	{"user_count", 0x48, 4, "open views"},
	{"reading", 0x4C, 4, "reader session active"},
	{"update_event", 0x50, 4, "update signal state"},
	{"complete_event", 0x54, 4, "completion signal state"},
	{"wake_seq", 0x58, 4, "futex word bumped on every signal"},
	{"freed", 0x5C, 4, "set by the owner before release"},
	{"owner_pid", 0x60, 4, "allocating process id"},
	{"flags", 0x64, 4, "reserved"},
	{"reserved", 0x68, 24, "reserved"},
}

// Describe writes the layout table to w.
func Describe(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-4s  %5s  %-15s  %s\n", "off", "width", "field", "description"); err != nil {
		return err
	}
	for _, f := range Fields {
		if _, err := fmt.Fprintf(w, "0x%02X  %5d  %-15s  %s\n", f.Offset, f.Width, f.Name, f.Desc); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "size %d bytes, version %d\n", ControlBlockSize, Version)
	return err
}

// At returns the control block at the start of mem.
// mem must be at least ControlBlockSize bytes and 8-byte aligned.
func At(mem []byte) (*ControlBlock, error) {
	if len(mem) < ControlBlockSize {
		return nil, fmt.Errorf("layout: region too small: %d bytes", len(mem))
	}
	p := unsafe.Pointer(&mem[0])
	if uintptr(p)%8 != 0 {
		return nil, fmt.Errorf("layout: region not 8-byte aligned")
	}
	return (*ControlBlock)(p), nil
}

// Init writes a fresh control block for geometry g.
// It must run before any other process maps the file.
func (c *ControlBlock) Init(g Geometry, ownerPID uint32) {
	copy(c.magic[:], Magic)
	c.version = Version
	c.elementSize = g.ElementSize
	c.maxElements = g.MaxElements
	c.windowElements = g.WindowElements
	c.windowBytes = g.WindowBytes
	c.windowStride = g.WindowStride
	c.headerBytes = g.HeaderBytes
	c.typeTag = g.TypeTag
	c.ownerPID = ownerPID
	atomic.StoreUint64(&c.committedBytes, 0)
	atomic.StoreInt32(&c.userCount, 0)
	atomic.StoreUint32(&c.reading, 0)
	atomic.StoreUint32(&c.updateEvent, 0)
	atomic.StoreUint32(&c.completeEvent, 0)
	atomic.StoreUint32(&c.wakeSeq, 0)
	atomic.StoreUint32(&c.freed, 0)
	atomic.StoreUint64(&c.size, 0)
}

// Validate checks magic, version and geometry consistency.
func (c *ControlBlock) Validate() error {
	if string(c.magic[:]) != Magic {
		return ErrBadMagic
	}
	if c.version != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, c.version)
	}
	g := c.Geometry()
	want, err := NewGeometry(g.ElementSize, g.MaxElements, g.WindowElements, int(g.HeaderBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadGeometry, err)
	}
	if want.WindowBytes != g.WindowBytes || g.WindowStride < uint64(g.WindowBytes) || g.HeaderBytes < ControlBlockSize {
		return ErrBadGeometry
	}
	if c.CommittedBytes()%uint64(g.WindowBytes) != 0 {
		return fmt.Errorf("%w: committed bytes %d not a multiple of window bytes %d", ErrBadGeometry, c.CommittedBytes(), g.WindowBytes)
	}
	return nil
}

// Geometry returns the allocation-time geometry.
func (c *ControlBlock) Geometry() Geometry {
	return Geometry{
		ElementSize:    c.elementSize,
		MaxElements:    c.maxElements,
		WindowElements: c.windowElements,
		WindowBytes:    c.windowBytes,
		WindowStride:   c.windowStride,
		HeaderBytes:    c.headerBytes,
		TypeTag:        c.typeTag,
	}
}

// Size returns the published element count (acquire).
func (c *ControlBlock) Size() uint64 {
	return atomic.LoadUint64(&c.size)
}

// PublishSize stores the element count (release).
func (c *ControlBlock) PublishSize(n uint64) {
	atomic.StoreUint64(&c.size, n)
}

// CommittedBytes returns the committed high-water mark.
func (c *ControlBlock) CommittedBytes() uint64 {
	return atomic.LoadUint64(&c.committedBytes)
}

// AdvanceCommitted moves the committed mark from old to new.
// It reports false if another view advanced it first.
func (c *ControlBlock) AdvanceCommitted(old, new uint64) bool {
	if new < old {
		return false
	}
	return atomic.CompareAndSwapUint64(&c.committedBytes, old, new)
}

// ElementSize returns bytes per element.
func (c *ControlBlock) ElementSize() uint32 { return c.elementSize }

// MaxElements returns the hard capacity.
func (c *ControlBlock) MaxElements() uint64 { return c.maxElements }

// TypeTag returns the element type tag.
func (c *ControlBlock) TypeTag() uint64 { return c.typeTag }

// OwnerPID returns the allocating process id.
func (c *ControlBlock) OwnerPID() uint32 { return c.ownerPID }

// UserCount returns the number of open views across all processes.
func (c *ControlBlock) UserCount() int32 {
	return atomic.LoadInt32(&c.userCount)
}

// AddUser adjusts the open view count and returns the new value.
func (c *ControlBlock) AddUser(delta int32) int32 {
	return atomic.AddInt32(&c.userCount, delta)
}

// Reading reports whether a reader session is active.
func (c *ControlBlock) Reading() bool {
	return atomic.LoadUint32(&c.reading) != 0
}

// SetReading sets the reader session flag.
func (c *ControlBlock) SetReading(v bool) {
	var n uint32
	if v {
		n = 1
	}
	atomic.StoreUint32(&c.reading, n)
}

// Freed reports whether the owner has released the vector.
func (c *ControlBlock) Freed() bool {
	return atomic.LoadUint32(&c.freed) != 0
}

// MarkFreed flags the vector as released.
func (c *ControlBlock) MarkFreed() {
	atomic.StoreUint32(&c.freed, 1)
}

// UpdateEvent returns the address of the update signal state.
func (c *ControlBlock) UpdateEvent() *uint32 { return &c.updateEvent }

// CompleteEvent returns the address of the completion signal state.
func (c *ControlBlock) CompleteEvent() *uint32 { return &c.completeEvent }

// WakeSeq returns the address of the futex word shared by both signals.
func (c *ControlBlock) WakeSeq() *uint32 { return &c.wakeSeq }
