// Package hash provides the checksums and tags stored alongside shared vectors.
//
//   - CRC32C guards every snapshot block (hardware accelerated on x86 and ARM).
//   - TypeTag is a 64-bit FNV-1a of a Go type name, recorded in the control
//     block so typed lookups from another process can detect a different
//     element type of the same size.
//
// Usage:
//
//	sum := hash.CRC32C(block)
//	tag := hash.TypeTag("github.com/acme/cull.Visible")
package hash
