package freelist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_LowestFirst(t *testing.T) {
	l := New()

	_, ok := l.Pop()
	assert.False(t, ok)

	l.Push(7)
	l.Push(3)
	l.Push(5)
	l.Push(3)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []uint32{3, 5, 7}, l.IDs())
	assert.True(t, l.Contains(5))

	id, ok := l.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(3), id)
	assert.False(t, l.Contains(3))

	id, _ = l.Pop()
	assert.Equal(t, uint32(5), id)
	assert.Equal(t, 1, l.Len())
}

func TestList_Concurrent(t *testing.T) {
	l := New()
	for i := uint32(1); i <= 100; i++ {
		l.Push(i)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint32]bool)
	)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				id, ok := l.Pop()
				if !ok {
					return
				}
				mu.Lock()
				assert.False(t, seen[id])
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 100)
	assert.Zero(t, l.Len())
}
