package hash

import (
	"hash"
	"hash/crc32"
	"hash/fnv"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// TypeTag returns the FNV-1a hash of name. It never returns 0, which marks
// an untagged vector.
func TypeTag(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	if s := h.Sum64(); s != 0 {
		return s
	}
	return 1
}
