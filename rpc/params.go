package rpc

import "github.com/hupe1980/shmvec"

// Parameter offsets of the built-in commands.
const (
	allocElementSizeOff     = 0  // u32
	allocWindowElementsOff  = 4  // u32
	allocMaxElementsOff     = 8  // u64
	allocInitialCapacityOff = 16 // u64
	allocTypeTagOff         = 24 // u64
	allocIDOff              = 32 // u32, result

	freeIDOff    = 0 // u32
	freeFreedOff = 4 // u32, result
)

func encodeAlloc(p *Params, req shmvec.AllocRequest) {
	p.Reset()
	p.PutUint32(allocElementSizeOff, req.ElementSize)
	p.PutUint32(allocWindowElementsOff, req.WindowElements)
	p.PutUint64(allocMaxElementsOff, req.MaxElements)
	p.PutUint64(allocInitialCapacityOff, req.InitialCapacity)
	p.PutUint64(allocTypeTagOff, req.TypeTag)
}

func decodeAlloc(p *Params) shmvec.AllocRequest {
	return shmvec.AllocRequest{
		ElementSize:     p.Uint32(allocElementSizeOff),
		WindowElements:  p.Uint32(allocWindowElementsOff),
		MaxElements:     p.Uint64(allocMaxElementsOff),
		InitialCapacity: p.Uint64(allocInitialCapacityOff),
		TypeTag:         p.Uint64(allocTypeTagOff),
	}
}

func encodeFree(p *Params, id shmvec.VectorID) {
	p.Reset()
	p.PutUint32(freeIDOff, uint32(id))
}
