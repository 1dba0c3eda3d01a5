// Package freelist recycles vector ids.
package freelist

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// List is a pool of released ids. Pop always returns the lowest one so id
// reuse is deterministic. The zero value is not usable; call New.
type List struct {
	mu   sync.Mutex
	free *roaring.Bitmap
}

// New returns an empty list.
func New() *List {
	return &List{free: roaring.New()}
}

// Push returns id to the pool. Pushing an id twice is a no-op.
func (l *List) Push(id uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.free.Add(id)
}

// Pop takes the lowest free id.
func (l *List) Pop() (uint32, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.free.IsEmpty() {
		return 0, false
	}
	id := l.free.Minimum()
	l.free.Remove(id)
	return id, true
}

// Contains reports whether id is free.
func (l *List) Contains(id uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.free.Contains(id)
}

// Len returns the number of free ids.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.free.GetCardinality())
}

// IDs returns the free ids in ascending order.
func (l *List) IDs() []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.free.ToArray()
}
