package shmvec

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hupe1980/shmvec/internal/event"
	"github.com/hupe1980/shmvec/internal/fs"
	"github.com/hupe1980/shmvec/internal/layout"
	"github.com/hupe1980/shmvec/internal/mmap"
	"github.com/hupe1980/shmvec/resource"
)

// vector is this process's handle on one backing file: the mapped control
// block plus what views need to map windows.
type vector struct {
	id   VectorID
	path string
	file fs.File
	hdr  *mmap.Mapping
	cb   *layout.ControlBlock
	geo  layout.Geometry

	log         *Logger
	mc          MetricsCollector
	rc          *resource.Controller
	copyWindows bool

	charged atomic.Int64 // commit bytes charged to rc by this process
	views   atomic.Int32 // views opened by this process
}

// mapHeader maps the control block of an open backing file.
func mapHeader(id VectorID, f fs.File, headerBytes int) (*mmap.Mapping, *layout.ControlBlock, error) {
	hdr, err := mmap.MapShared(f, 0, headerBytes, true)
	if err != nil {
		return nil, nil, &MapError{Op: "header", ID: id, cause: err}
	}
	cb, err := layout.At(hdr.Bytes())
	if err != nil {
		_ = hdr.Close()
		return nil, nil, &MapError{Op: "header", ID: id, cause: err}
	}
	return hdr, cb, nil
}

// commitTo grows committedBytes window by window until it covers need bytes.
// Growth stops at the last window MaxElements needs.
func (v *vector) commitTo(need uint64) error {
	need = min(need, v.geo.MaxCommittedBytes())
	wb := uint64(v.geo.WindowBytes)
	stride := int64(v.geo.WindowStride)

	for {
		cur := v.cb.CommittedBytes()
		if cur >= need {
			return nil
		}
		off := v.geo.WindowOffset(cur / wb)

		if err := v.rc.AcquireCommit(stride); err != nil {
			return v.commitFailed(cur, off, err)
		}
		if err := mmap.Commit(v.file, off, stride); err != nil {
			v.rc.ReleaseCommit(stride)
			return v.commitFailed(cur, off, err)
		}
		if !v.cb.AdvanceCommitted(cur, cur+wb) {
			// Another view committed this window first.
			v.rc.ReleaseCommit(stride)
			continue
		}
		v.charged.Add(stride)
		v.mc.RecordCommit(int64(wb), nil)
		v.log.LogCommit(v.id, cur+wb, nil)
	}
}

func (v *vector) commitFailed(cur uint64, off int64, err error) error {
	v.mc.RecordCommit(0, err)
	v.log.LogCommit(v.id, cur, err)
	return &MapError{Op: "commit", ID: v.id, Offset: off, cause: err}
}

// update wakes a reader blocked in waitRead.
func (v *vector) update() error {
	if err := event.Signal(v.cb.UpdateEvent(), v.cb.WakeSeq()); err != nil {
		return &WaitError{ID: v.id, cause: err}
	}
	return nil
}

// complete tells a waiting reader that the write session is over.
func (v *vector) complete() error {
	if err := event.Signal(v.cb.CompleteEvent(), v.cb.WakeSeq()); err != nil {
		return &WaitError{ID: v.id, cause: err}
	}
	return nil
}

// resetComplete drops a pending completion signal.
func (v *vector) resetComplete() { event.Reset(v.cb.CompleteEvent()) }

// waitRead blocks until size moves away from seen after an update, the
// completion signal fires, or timeout passes. An update that finds size
// unchanged was already accounted for and the wait continues.
func (v *vector) waitRead(seen uint64, timeout time.Duration) (WaitResult, uint64, error) {
	start := time.Now()
	res, n, err := v.waitLoop(seen, start, timeout)
	v.mc.RecordWait(res, time.Since(start))
	if err != nil {
		v.log.LogWait(v.id, err)
	}
	return res, n, err
}

func (v *vector) waitLoop(seen uint64, start time.Time, timeout time.Duration) (WaitResult, uint64, error) {
	for {
		remaining := timeout
		if timeout > 0 {
			remaining = timeout - time.Since(start)
			if remaining <= 0 {
				return WaitTimeout, seen, nil
			}
		}

		idx, err := event.WaitAny(v.cb.WakeSeq(), remaining, v.cb.UpdateEvent(), v.cb.CompleteEvent())
		switch {
		case errors.Is(err, event.ErrTimeout):
			return WaitTimeout, seen, nil
		case err != nil:
			return WaitFailed, seen, &WaitError{ID: v.id, cause: err}
		case idx == 1:
			v.cb.SetReading(false)
			return WaitCompleted, v.cb.Size(), nil
		}

		if n := v.cb.Size(); n != seen {
			return WaitUpdated, n, nil
		}
	}
}

// release drops this process's mapping of the vector.
func (v *vector) release() error {
	err := v.hdr.Close()
	if cerr := v.file.Close(); err == nil {
		err = cerr
	}
	v.rc.ReleaseCommit(v.charged.Swap(0))
	return err
}

// destroy releases the vector and removes its backing file.
func (v *vector) destroy(fsys fs.FileSystem) error {
	err := v.release()
	if rerr := fsys.Remove(v.path); err == nil {
		err = rerr
	}
	return err
}

func (v *vector) stat() Stat {
	st := statOf(v.cb)
	st.ID = v.id
	st.Path = v.path
	return st
}
