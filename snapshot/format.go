package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/shmvec/internal/hash"
)

const (
	magic   = "SHMVSNAP"
	version = 1

	// HeaderSize is the encoded size of Header.
	HeaderSize     = 64
	blockHeaderLen = 16

	flagCompressed = 1 << 0
)

var (
	// ErrCorrupt reports a snapshot that cannot be decoded.
	ErrCorrupt = errors.New("snapshot: corrupt")
	// ErrChecksum reports a block or header whose CRC32C does not match.
	ErrChecksum = errors.New("snapshot: checksum mismatch")
	// ErrVersion reports a snapshot written by a newer format.
	ErrVersion = errors.New("snapshot: unsupported version")
)

// Header describes the vector a snapshot was taken from.
type Header struct {
	Version        uint16
	Codec          Codec
	ElementSize    uint32
	WindowElements uint32
	Count          uint64
	MaxElements    uint64
	TypeTag        uint64
}

// Blocks returns the number of blocks following the header.
func (h Header) Blocks() uint64 {
	if h.WindowElements == 0 {
		return 0
	}
	we := uint64(h.WindowElements)
	return (h.Count + we - 1) / we
}

func (h Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:8], magic)
	binary.LittleEndian.PutUint16(b[8:], h.Version)
	b[10] = byte(h.Codec)
	binary.LittleEndian.PutUint32(b[12:], h.ElementSize)
	binary.LittleEndian.PutUint32(b[16:], h.WindowElements)
	binary.LittleEndian.PutUint64(b[24:], h.Count)
	binary.LittleEndian.PutUint64(b[32:], h.MaxElements)
	binary.LittleEndian.PutUint64(b[40:], h.TypeTag)
	binary.LittleEndian.PutUint32(b[60:], hash.CRC32C(b[:60]))
	return b
}

func unmarshalHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize || string(b[0:8]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if binary.LittleEndian.Uint32(b[60:]) != hash.CRC32C(b[:60]) {
		return Header{}, fmt.Errorf("%w: header", ErrChecksum)
	}
	h := Header{
		Version:        binary.LittleEndian.Uint16(b[8:]),
		Codec:          Codec(b[10]),
		ElementSize:    binary.LittleEndian.Uint32(b[12:]),
		WindowElements: binary.LittleEndian.Uint32(b[16:]),
		Count:          binary.LittleEndian.Uint64(b[24:]),
		MaxElements:    binary.LittleEndian.Uint64(b[32:]),
		TypeTag:        binary.LittleEndian.Uint64(b[40:]),
	}
	if h.Version > version {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if !h.Codec.valid() {
		return Header{}, fmt.Errorf("%w: codec %d", ErrCorrupt, h.Codec)
	}
	if h.ElementSize == 0 || h.WindowElements == 0 || h.Count > h.MaxElements {
		return Header{}, fmt.Errorf("%w: geometry", ErrCorrupt)
	}
	return h, nil
}

// ReadHeader decodes the header at the start of r.
func ReadHeader(r io.Reader) (Header, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return Header{}, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	return unmarshalHeader(b)
}

// block is one encoded window.
type block struct {
	rawLen  int
	sum     uint32
	payload []byte
	flags   uint8
}

func encodeBlock(c Codec, raw []byte) (block, error) {
	out, err := compress(c, raw)
	if err != nil {
		return block{}, err
	}
	b := block{rawLen: len(raw), sum: hash.CRC32C(raw), payload: raw}
	if out != nil {
		b.payload, b.flags = out, flagCompressed
	}
	return b, nil
}

func (b block) writeTo(w io.Writer) error {
	var hdr [blockHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(b.rawLen))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(b.payload)))
	binary.LittleEndian.PutUint32(hdr[8:], b.sum)
	hdr[12] = b.flags
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(b.payload)
	return err
}

// readBlock reads and verifies one block. maxRaw bounds the raw length.
func readBlock(r io.Reader, c Codec, maxRaw int) ([]byte, error) {
	var hdr [blockHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: block header: %v", ErrCorrupt, err)
	}
	rawLen := int(binary.LittleEndian.Uint32(hdr[0:]))
	storedLen := int(binary.LittleEndian.Uint32(hdr[4:]))
	sum := binary.LittleEndian.Uint32(hdr[8:])
	flags := hdr[12]

	if rawLen > maxRaw || storedLen > maxRaw || (flags&flagCompressed == 0 && storedLen != rawLen) {
		return nil, fmt.Errorf("%w: block length", ErrCorrupt)
	}
	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("%w: block payload: %v", ErrCorrupt, err)
	}

	raw := stored
	if flags&flagCompressed != 0 {
		var err error
		if raw, err = decompress(c, stored, rawLen); err != nil {
			return nil, err
		}
	}
	if hash.CRC32C(raw) != sum {
		return nil, ErrChecksum
	}
	return raw, nil
}
