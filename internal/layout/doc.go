// Package layout defines the control block shared by every process that maps
// a vector's backing store.
//
// # Layout
//
// The control block sits at offset zero of the backing file. Its fields have
// fixed offsets and widths, little-endian, and are described once in Fields.
// Both sides read and write the block only through the accessors in this
// package so that no process relies on its compiler agreeing on struct layout.
//
//	┌──────────────────────────────┐ 0
//	│ control block (128 bytes)     │
//	│ padding to HeaderBytes        │
//	├──────────────────────────────┤ HeaderBytes
//	│ window 0 (WindowStride bytes) │
//	├──────────────────────────────┤
//	│ window 1                      │
//	│ ...                           │
//	└──────────────────────────────┘ HeaderBytes + MaxWindows*WindowStride
//
// # Ordering
//
// size is written with an atomic store after the element bytes it covers are
// in place and read with an atomic load before those bytes are touched. No
// other field is ordered against element data.
package layout
