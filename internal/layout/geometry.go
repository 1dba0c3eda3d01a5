package layout

import (
	"fmt"
	"math"
)

// Geometry is the allocation-time shape of a vector. It never changes.
type Geometry struct {
	ElementSize    uint32
	MaxElements    uint64
	WindowElements uint32
	// WindowBytes is ElementSize*WindowElements; committedBytes counts in these units.
	WindowBytes uint32
	// WindowStride is WindowBytes rounded up to the mapping granularity.
	// Window w starts at HeaderBytes + w*WindowStride in the backing file.
	WindowStride uint64
	HeaderBytes  uint64
	TypeTag      uint64
}

// NewGeometry validates the requested shape and derives the mapped sizes.
// granularity is the platform's mapping offset alignment and must be a power of two.
func NewGeometry(elementSize uint32, maxElements uint64, windowElements uint32, granularity int) (Geometry, error) {
	if granularity <= 0 || granularity&(granularity-1) != 0 {
		return Geometry{}, fmt.Errorf("granularity %d is not a power of two", granularity)
	}
	if elementSize == 0 {
		return Geometry{}, fmt.Errorf("element size must be positive")
	}
	if windowElements == 0 {
		return Geometry{}, fmt.Errorf("window elements must be positive")
	}
	if maxElements == 0 {
		return Geometry{}, fmt.Errorf("max elements must be positive")
	}
	windowBytes := uint64(elementSize) * uint64(windowElements)
	if windowBytes > math.MaxUint32 {
		return Geometry{}, fmt.Errorf("window of %d bytes exceeds 4GiB", windowBytes)
	}

	g := Geometry{
		ElementSize:    elementSize,
		MaxElements:    maxElements,
		WindowElements: windowElements,
		WindowBytes:    uint32(windowBytes),
		WindowStride:   AlignUp(windowBytes, uint64(granularity)),
		HeaderBytes:    AlignUp(ControlBlockSize, uint64(granularity)),
	}
	if g.MaxWindows() > (math.MaxInt64-g.HeaderBytes)/g.WindowStride {
		return Geometry{}, fmt.Errorf("%d elements overflow the backing file", maxElements)
	}
	return g, nil
}

// MaxWindows is the number of windows needed for MaxElements.
func (g Geometry) MaxWindows() uint64 {
	return g.WindowsFor(g.MaxElements)
}

// MaxCommittedBytes is the committed mark once every window is committed.
func (g Geometry) MaxCommittedBytes() uint64 {
	return g.MaxWindows() * uint64(g.WindowBytes)
}

// FileSize is the backing file size.
func (g Geometry) FileSize() int64 {
	return int64(g.HeaderBytes + g.MaxWindows()*g.WindowStride)
}

// WindowOffset is the backing file offset of window w.
func (g Geometry) WindowOffset(w uint64) int64 {
	return int64(g.HeaderBytes + w*g.WindowStride)
}

// WindowOf splits an element index into window and slot.
func (g Geometry) WindowOf(i uint64) (window uint64, sub uint32) {
	return i / uint64(g.WindowElements), uint32(i % uint64(g.WindowElements))
}

// WindowsFor is the number of windows covering n elements.
func (g Geometry) WindowsFor(n uint64) uint64 {
	we := uint64(g.WindowElements)
	w := n / we
	if n%we != 0 {
		w++
	}
	return w
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
func AlignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}
