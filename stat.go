package shmvec

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/shmvec/internal/layout"
	"github.com/hupe1980/shmvec/internal/mmap"
)

// Stat is a snapshot of a vector's control block.
type Stat struct {
	ID             VectorID
	Path           string
	ElementSize    uint32
	Size           uint64
	CommittedBytes uint64
	MaxElements    uint64
	WindowElements uint32
	WindowBytes    uint32
	WindowStride   uint64
	HeaderBytes    uint64
	TypeTag        uint64
	UserCount      int32
	Reading        bool
	OwnerPID       uint32
	Freed          bool
}

// Inspect reads the control block of the backing file at path without
// opening a view or touching any counter.
func Inspect(path string) (Stat, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stat{}, err
	}
	defer f.Close()

	m, err := mmap.MapShared(f, 0, layout.ControlBlockSize, false)
	if err != nil {
		return Stat{}, &MapError{Op: "header", cause: err}
	}
	defer m.Close()

	cb, err := layout.At(m.Bytes())
	if err != nil {
		return Stat{}, err
	}
	if err := cb.Validate(); err != nil {
		return Stat{}, fmt.Errorf("shmvec: %s: %w", path, err)
	}

	st := statOf(cb)
	st.Path = path
	if n, err := strconv.ParseUint(strings.TrimSuffix(filepath.Base(path), fileExt), 10, 32); err == nil {
		st.ID = VectorID(n)
	}
	return st, nil
}

// Path returns the backing file of vector id in namespace ns under dir.
func Path(dir, ns string, id VectorID) string {
	return filepath.Join(dir, ns, id.String()+fileExt)
}

func statOf(cb *layout.ControlBlock) Stat {
	g := cb.Geometry()
	return Stat{
		ElementSize:    g.ElementSize,
		Size:           cb.Size(),
		CommittedBytes: cb.CommittedBytes(),
		MaxElements:    g.MaxElements,
		WindowElements: g.WindowElements,
		WindowBytes:    g.WindowBytes,
		WindowStride:   g.WindowStride,
		HeaderBytes:    g.HeaderBytes,
		TypeTag:        g.TypeTag,
		UserCount:      cb.UserCount(),
		Reading:        cb.Reading(),
		OwnerPID:       cb.OwnerPID(),
		Freed:          cb.Freed(),
	}
}
