package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

const (
	blockMagic   = "SHMVRPC\x00"
	blockVersion = uint32(1)
	blockFile    = "rpc.cmd"

	// ParamsSize is the size of the parameter area.
	ParamsSize = 256

	blockSize = 64 + ParamsSize
)

const (
	stateIdle uint32 = iota
	stateListening
	stateStopped
)

var errBadBlock = errors.New("rpc: invalid command block")

// block is the shared command block. Offsets are fixed and checked by tests.
type block struct {
	magic         [8]byte // 0x00
	version       uint32  // 0x08
	command       uint32  // 0x0C
	status        uint32  // 0x10
	hostPID       uint32  // 0x14
	clientPID     uint32  // 0x18
	state         uint32  // 0x1C
	startEvent    uint32  // 0x20
	completeEvent uint32  // 0x24
	wakeSeq       uint32  // 0x28
	_             uint32  // 0x2C
	callSeq       uint64  // 0x30
	doneSeq       uint64  // 0x38
	params        Params  // 0x40
}

func blockAt(mem []byte) (*block, error) {
	if len(mem) < blockSize {
		return nil, fmt.Errorf("%w: %d bytes", errBadBlock, len(mem))
	}
	p := unsafe.Pointer(&mem[0])
	if uintptr(p)%8 != 0 {
		return nil, fmt.Errorf("%w: unaligned", errBadBlock)
	}
	return (*block)(p), nil
}

func (b *block) init(pid uint32) {
	copy(b.magic[:], blockMagic)
	b.version = blockVersion
	atomic.StoreUint32(&b.hostPID, pid)
	atomic.StoreUint32(&b.state, stateIdle)
}

func (b *block) validate() error {
	if string(b.magic[:]) != blockMagic {
		return fmt.Errorf("%w: magic", errBadBlock)
	}
	if b.version != blockVersion {
		return fmt.Errorf("%w: version %d", errBadBlock, b.version)
	}
	return nil
}

func (b *block) loadState() uint32 { return atomic.LoadUint32(&b.state) }

// Params is the fixed parameter area. Values are little-endian at offsets
// chosen by each command.
type Params [ParamsSize]byte

func (p *Params) Uint16(off int) uint16 { return binary.LittleEndian.Uint16(p[off:]) }

func (p *Params) PutUint16(off int, v uint16) { binary.LittleEndian.PutUint16(p[off:], v) }

func (p *Params) Uint32(off int) uint32 { return binary.LittleEndian.Uint32(p[off:]) }

func (p *Params) PutUint32(off int, v uint32) { binary.LittleEndian.PutUint32(p[off:], v) }

func (p *Params) Uint64(off int) uint64 { return binary.LittleEndian.Uint64(p[off:]) }

func (p *Params) PutUint64(off int, v uint64) { binary.LittleEndian.PutUint64(p[off:], v) }

// Reset zeroes the area.
func (p *Params) Reset() { *p = Params{} }
