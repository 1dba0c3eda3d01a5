package rpc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/internal/event"
	"github.com/hupe1980/shmvec/internal/fs"
	"github.com/hupe1980/shmvec/internal/mmap"
)

// Client sends commands to the host of a namespace. Calls are serialized.
type Client struct {
	mu     sync.Mutex
	file   fs.File
	m      *mmap.Mapping
	b      *block
	pid    uint32
	opts   options
	closed bool
}

// Dial connects to the host serving namespace under dir and waits until it
// listens. A namespace accepts one client process at a time.
func Dial(ctx context.Context, dir, namespace string, optFns ...Option) (*Client, error) {
	o := applyOptions(optFns)

	path := filepath.Join(dir, namespace, blockFile)
	f, err := fs.OpenBacking(o.fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoHost, namespace)
		}
		return nil, err
	}
	m, b, err := mapBlock(f)
	if err == nil {
		err = b.validate()
	}
	if err != nil {
		if m != nil {
			_ = m.Close()
		}
		_ = f.Close()
		return nil, err
	}

	c := &Client{file: f, m: m, b: b, pid: uint32(os.Getpid()), opts: o}
	if err := c.claim(); err != nil {
		_ = c.release()
		return nil, err
	}
	if err := c.waitListening(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// claim records this process as the client unless another live one is.
func (c *Client) claim() error {
	for {
		cur := atomic.LoadUint32(&c.b.clientPID)
		if cur == c.pid {
			return nil
		}
		if cur != 0 && alive(cur) {
			return fmt.Errorf("%w: pid %d", ErrBusy, cur)
		}
		if atomic.CompareAndSwapUint32(&c.b.clientPID, cur, c.pid) {
			return nil
		}
	}
}

func (c *Client) hostAlive() bool {
	return c.b.loadState() != stateStopped && alive(atomic.LoadUint32(&c.b.hostPID))
}

func (c *Client) waitListening(ctx context.Context) error {
	t := time.NewTicker(c.opts.poll)
	defer t.Stop()
	for {
		switch c.b.loadState() {
		case stateListening:
			return nil
		case stateStopped:
			return ErrNoHost
		}
		if !c.hostAlive() {
			return ErrHostGone
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// waitDone blocks until the host has finished call seq.
func (c *Client) waitDone(ctx context.Context, seq uint64) error {
	b := c.b
	for atomic.LoadUint64(&b.doneSeq) != seq {
		_, err := event.WaitAny(&b.wakeSeq, c.opts.poll, &b.completeEvent)
		if err != nil && !errors.Is(err, event.ErrTimeout) {
			return fmt.Errorf("rpc: wait for completion: %w", err)
		}
		if atomic.LoadUint64(&b.doneSeq) == seq {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !c.hostAlive() {
			return ErrHostGone
		}
	}
	return nil
}

// Call runs cmd on the host. p carries the parameters in and, on success,
// the results out. A failed command returns a *CallError.
func (c *Client) Call(ctx context.Context, cmd Command, p *Params) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shmvec.ErrClosed
	}
	b := c.b

	// A call abandoned by its context may still be running.
	if err := c.waitDone(ctx, atomic.LoadUint64(&b.callSeq)); err != nil {
		return err
	}
	if !c.hostAlive() {
		return ErrHostGone
	}

	b.params = *p
	atomic.StoreUint32(&b.command, uint32(cmd))
	seq := atomic.AddUint64(&b.callSeq, 1)
	if err := event.Signal(&b.startEvent, &b.wakeSeq); err != nil {
		return fmt.Errorf("rpc: signal start: %w", err)
	}
	if err := c.waitDone(ctx, seq); err != nil {
		return err
	}

	out := b.params
	if st := Status(atomic.LoadUint32(&b.status)); st != StatusOK {
		return readFailure(cmd, st, &out)
	}
	*p = out
	return nil
}

// AllocVec asks the host to allocate a vector.
func (c *Client) AllocVec(ctx context.Context, req shmvec.AllocRequest) (shmvec.VectorID, error) {
	var p Params
	encodeAlloc(&p, req)
	if err := c.Call(ctx, CmdAllocVec, &p); err != nil {
		return 0, err
	}
	return shmvec.VectorID(p.Uint32(allocIDOff)), nil
}

// AllocVecOf asks the host to allocate a vector of T.
func AllocVecOf[T any](ctx context.Context, c *Client, maxElements uint64, windowElements uint32, initialCapacity uint64) (shmvec.VectorID, error) {
	req, err := shmvec.RequestOf[T](maxElements, windowElements, initialCapacity)
	if err != nil {
		return 0, err
	}
	return c.AllocVec(ctx, req)
}

// FreeVec asks the host to free id. A vector still in use is not freed and
// the error matches shmvec.ErrInUse.
func (c *Client) FreeVec(ctx context.Context, id shmvec.VectorID) (bool, error) {
	var p Params
	encodeFree(&p, id)
	if err := c.Call(ctx, CmdFreeVec, &p); err != nil {
		return false, err
	}
	return p.Uint32(freeFreedOff) != 0, nil
}

// Exit stops the host once it has replied.
func (c *Client) Exit(ctx context.Context) error {
	var p Params
	return c.Call(ctx, CmdExit, &p)
}

// Close disconnects. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.release()
}

func (c *Client) release() error {
	atomic.CompareAndSwapUint32(&c.b.clientPID, c.pid, 0)
	return errors.Join(c.m.Close(), c.file.Close())
}
