// Package snapshot copies the published elements of a shared vector to a
// blobstore.BlobStore and back.
//
// A snapshot is a fixed header followed by one block per window. Each block
// holds the window's elements, compressed with the header's codec when that
// saves space, and a CRC32C of the uncompressed bytes:
//
//	header  magic "SHMVSNAP" | version | codec | element size | window elements
//	        | count | max elements | type tag | crc32c
//	block   raw len | stored len | crc32c(raw) | flags | payload
//
// Export compresses windows in parallel and writes them in order. Import
// allocates a vector with the recorded geometry, appends every block inside a
// write session and completes it, so a reader attached to the new vector
// drains it with the usual WaitRead loop.
package snapshot
