package rpc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/internal/event"
	"github.com/hupe1980/shmvec/internal/fs"
	"github.com/hupe1980/shmvec/internal/mmap"
)

// HandlerFunc runs one command. p holds the caller's parameters; what the
// handler leaves in it is returned to the caller when it succeeds.
type HandlerFunc func(ctx context.Context, p *Params) error

// Host serves commands for one owning registry.
type Host struct {
	reg  *shmvec.Registry
	path string
	file fs.File
	m    *mmap.Mapping
	b    *block
	opts options
	log  *shmvec.Logger

	mu       sync.RWMutex
	handlers map[Command]HandlerFunc
	closed   atomic.Bool
}

// NewHost creates the command block in reg's namespace directory.
func NewHost(reg *shmvec.Registry, optFns ...Option) (*Host, error) {
	if !reg.Owner() {
		return nil, shmvec.ErrNotOwner
	}
	o := applyOptions(optFns)

	path := filepath.Join(reg.Dir(), blockFile)
	f, err := fs.CreateBacking(o.fsys, path, blockSize)
	if err != nil {
		return nil, fmt.Errorf("rpc: create command block: %w", err)
	}
	m, b, err := mapBlock(f)
	if err != nil {
		_ = f.Close()
		_ = o.fsys.Remove(path)
		return nil, err
	}
	b.init(uint32(os.Getpid()))

	return &Host{
		reg:      reg,
		path:     path,
		file:     f,
		m:        m,
		b:        b,
		opts:     o,
		log:      o.logger.WithNamespace(reg.Namespace()),
		handlers: make(map[Command]HandlerFunc),
	}, nil
}

func mapBlock(f fs.File) (*mmap.Mapping, *block, error) {
	m, err := mmap.MapShared(f, 0, blockSize, true)
	if err != nil {
		return nil, nil, fmt.Errorf("rpc: map command block: %w", err)
	}
	b, err := blockAt(m.Bytes())
	if err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	return m, b, nil
}

// Path returns the command block file.
func (h *Host) Path() string { return h.path }

// Handle registers fn for cmd, replacing any earlier handler. Values below
// CmdUser are reserved.
func (h *Host) Handle(cmd Command, fn HandlerFunc) error {
	if cmd < CmdUser {
		return fmt.Errorf("%w: %s", ErrReserved, cmd)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[cmd] = fn
	return nil
}

// Listen serves commands until CmdExit (nil), ctx ends (ctx.Err()) or the
// dialed client process exits (ErrClientGone).
func (h *Host) Listen(ctx context.Context) error {
	if h.closed.Load() {
		return shmvec.ErrClosed
	}
	b := h.b
	atomic.StoreUint32(&b.state, stateListening)
	defer atomic.StoreUint32(&b.state, stateStopped)

	h.log.Info("rpc host listening", "path", h.path, "pid", os.Getpid())
	if err := event.Signal(&b.completeEvent, &b.wakeSeq); err != nil {
		return fmt.Errorf("rpc: signal ready: %w", err)
	}

	for {
		if err := h.waitStart(ctx); err != nil {
			return err
		}

		seq := atomic.LoadUint64(&b.callSeq)
		cmd := Command(atomic.LoadUint32(&b.command))
		st, exit := h.dispatch(ctx, cmd)

		atomic.StoreUint32(&b.status, uint32(st))
		atomic.StoreUint64(&b.doneSeq, seq)
		if err := event.Signal(&b.completeEvent, &b.wakeSeq); err != nil {
			return fmt.Errorf("rpc: signal completion: %w", err)
		}
		if exit {
			h.log.Info("rpc host received exit command")
			return nil
		}
	}
}

func (h *Host) waitStart(ctx context.Context) error {
	for {
		_, err := event.WaitAny(&h.b.wakeSeq, h.opts.poll, &h.b.startEvent)
		if err == nil {
			return nil
		}
		if !errors.Is(err, event.ErrTimeout) {
			return fmt.Errorf("rpc: wait for command: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		pid := atomic.LoadUint32(&h.b.clientPID)
		if pid == 0 || alive(pid) {
			continue
		}
		// Release the block so the next Listen waits for a new client.
		if atomic.CompareAndSwapUint32(&h.b.clientPID, pid, 0) {
			h.log.Info("rpc client exited", "client_pid", pid)
			return ErrClientGone
		}
	}
}

// dispatch runs cmd on a copy of the parameter area and writes the results back.
func (h *Host) dispatch(ctx context.Context, cmd Command) (Status, bool) {
	p := h.b.params
	defer func() { h.b.params = p }()

	var err error
	switch cmd {
	case CmdNone:
	case CmdAllocVec:
		err = h.allocVec(&p)
	case CmdFreeVec:
		err = h.freeVec(&p)
	case CmdExit:
		return StatusOK, true
	default:
		h.mu.RLock()
		fn, ok := h.handlers[cmd]
		h.mu.RUnlock()
		if !ok {
			h.log.Warn("unknown command", "command", cmd.String())
			writeFailure(&p, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd))
			return StatusUnknownCommand, false
		}
		err = run(ctx, fn, &p)
	}

	if err != nil {
		h.log.Warn("command failed", "command", cmd.String(), "error", err)
		writeFailure(&p, err)
		return StatusFailed, false
	}
	h.log.Debug("command done", "command", cmd.String())
	return StatusOK, false
}

func run(ctx context.Context, fn HandlerFunc, p *Params) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rpc: handler panic: %v", r)
		}
	}()
	return fn(ctx, p)
}

func (h *Host) allocVec(p *Params) error {
	id, err := h.reg.Alloc(decodeAlloc(p))
	if err != nil {
		return err
	}
	p.PutUint32(allocIDOff, uint32(id))
	return nil
}

func (h *Host) freeVec(p *Params) error {
	freed, err := h.reg.Free(shmvec.VectorID(p.Uint32(freeIDOff)))
	if err != nil {
		return err
	}
	if freed {
		p.PutUint32(freeFreedOff, 1)
	}
	return nil
}

// Close unmaps and removes the command block. Call it after Listen returns.
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	atomic.StoreUint32(&h.b.state, stateStopped)
	return errors.Join(h.m.Close(), h.file.Close(), h.opts.fsys.Remove(h.path))
}
