// Package mmap provides the virtual memory primitives behind shared vectors.
//
// # Overview
//
// Two kinds of mapping are offered:
//
//   - Mapping: a fixed read-write (or read-only) shared mapping of a file
//     range. Used for control blocks and command blocks.
//   - Window: a fixed-size slot of address space that can be pointed at any
//     granularity-aligned range of a backing file and moved later without
//     releasing the address space.
//
// # Usage
//
//	w, err := mmap.NewWindow(f, 64<<10)
//	if err != nil { ... }
//	defer w.Close()
//
//	_ = w.Map(headerBytes)            // window 0
//	copy(w.Bytes(), data)
//	_ = w.Map(headerBytes + stride)   // slide to window 1
//
// # Platform Support
//
//   - Linux, macOS: the window reserves PROT_NONE address space once and maps
//     file ranges over it with MAP_FIXED; Unmap puts the placeholder back.
//   - Windows: each Map creates a fresh MapViewOfFile view; the address may
//     change between calls, so callers re-read Bytes after every Map.
//   - Elsewhere, and on request: a copy window that reads the range into a
//     private buffer and writes slots back on Flush.
//
// Callers must treat Bytes as invalid after Map, Unmap or Close and must call
// Flush after writing and Refresh before reading bytes that another process
// may have written; both are no-ops for real mappings.
//
// # Commit
//
// Commit asks the file system to back a range with real storage. On Linux
// this is fallocate(2), which turns a later SIGBUS on a full tmpfs into an
// error at commit time. Elsewhere it is a no-op: the file is already sized.
package mmap
