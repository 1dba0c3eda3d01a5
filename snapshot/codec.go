package snapshot

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the block compression.
type Codec uint8

const (
	// CodecNone stores blocks uncompressed.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression.
	CodecLZ4 Codec = 1
	// CodecZstd uses Zstandard.
	CodecZstd Codec = 2
)

// String implements fmt.Stringer.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec parses a codec name as printed by String.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown codec %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Codec) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Codec) UnmarshalText(b []byte) error {
	v, err := ParseCodec(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Codec) valid() bool { return c <= CodecZstd }

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

// compress returns the encoded block, or nil when encoding does not shrink it.
func compress(c Codec, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []byte
	switch c {
	case CodecNone:
		return nil, nil
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, err
		}
		out = dst[:n]
	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		out = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, c)
	}
	if len(out) == 0 || len(out) >= len(raw) {
		return nil, nil
	}
	return out, nil
}

// decompress decodes stored into a buffer of rawLen bytes.
func decompress(c Codec, stored []byte, rawLen int) ([]byte, error) {
	raw := make([]byte, rawLen)
	switch c {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: lz4 block size %d, want %d", ErrCorrupt, n, rawLen)
		}
		return raw, nil
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(stored, raw[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: zstd block size %d, want %d", ErrCorrupt, len(out), rawLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compressed block with codec %s", ErrCorrupt, c)
	}
}
