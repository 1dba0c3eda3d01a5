// Package shmvec provides growable, typed arrays shared between processes.
//
// A vector lives in a backing file under a namespace directory (by default
// in /dev/shm). The first page holds a fixed-layout control block with the
// published size, the committed high-water mark, the capacity, the number of
// open views and two cross-process signals. Elements follow in windows of
// WindowElements slots.
//
// # Quick Start
//
// Owner side:
//
//	reg, _ := shmvec.NewRegistry(shmvec.WithNamespace("cull"))
//	id, _ := shmvec.AllocOf[Visible](reg, 1<<24, 4096, 0)
//
//	v, _ := shmvec.Lookup[Visible](reg, id)
//	v.StartWrite()
//	for _, x := range batch {
//	    _ = v.PushBack(x)
//	}
//	_ = v.Update()
//	_ = v.EndWrite()
//
// Other side:
//
//	reg, _ := shmvec.Attach("cull")
//	v, _ := shmvec.Lookup[Visible](reg, id)
//	_ = v.Consume(time.Second, func(i int, x Visible) error {
//	    return draw(x)
//	})
//
// # Windows
//
// A view never maps more than one window. Moving to an index in another
// window remaps the view's address space onto that part of the file; pages
// are committed the first time any view reaches them, so the vector grows
// without copying what is already written. Sequential movement remaps only at
// window boundaries.
//
// # Visibility
//
// An element is written into its slot before the size that covers it is
// published with an atomic store, and readers load the size atomically before
// touching slots. Readers are not woken per element: the writer calls Update
// after a batch (and implicitly whenever an append crosses into a new window
// during a write session) and EndWrite when it is done.
//
// # Lifetime
//
// Only the owner frees. Free refuses while any process holds a view or a
// reader session is active; the open-view count is diagnostic and never
// frees anything on its own.
//
// Element types must not contain pointers, strings, slices, maps, channels,
// functions or interfaces.
package shmvec
