package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value from RFC 3720 B.4: 32 bytes of zeros.
	assert.Equal(t, uint32(0x8a9136aa), CRC32C(make([]byte, 32)))

	h := NewCRC32C()
	_, _ = h.Write([]byte("win"))
	_, _ = h.Write([]byte("dow"))
	assert.Equal(t, CRC32C([]byte("window")), h.Sum32())
}

func TestTypeTag(t *testing.T) {
	// FNV-1a 64 of the empty string is the offset basis.
	assert.Equal(t, uint64(0xcbf29ce484222325), TypeTag(""))
	assert.Equal(t, TypeTag("pkg.Point"), TypeTag("pkg.Point"))
	assert.NotEqual(t, TypeTag("pkg.Point"), TypeTag("pkg.Pair"))
	assert.NotZero(t, TypeTag("a"))
}
