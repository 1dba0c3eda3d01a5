package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrCommitLimitExceeded is returned when a commit would exceed the configured budget.
var ErrCommitLimitExceeded = errors.New("resource: commit limit exceeded")

// Config holds resource limits.
type Config struct {
	// CommitLimitBytes bounds committed backing-store bytes.
	// If 0, commits are only tracked.
	CommitLimitBytes int64

	// MaxBackgroundWorkers is the maximum number of concurrent snapshot workers.
	// If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec is the maximum snapshot IO throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages commit budget, background concurrency and IO rate.
type Controller struct {
	cfg Config

	commitSem  *semaphore.Weighted // nil if unlimited
	commitUsed atomic.Int64

	bgSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.CommitLimitBytes > 0 {
		c.commitSem = semaphore.NewWeighted(cfg.CommitLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the limits the controller was built with.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireCommit reserves bytes of commit budget without blocking.
func (c *Controller) AcquireCommit(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.commitSem != nil && !c.commitSem.TryAcquire(bytes) {
		return ErrCommitLimitExceeded
	}
	c.commitUsed.Add(bytes)
	return nil
}

// ReleaseCommit returns bytes of commit budget.
func (c *Controller) ReleaseCommit(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.commitSem != nil {
		c.commitSem.Release(bytes)
	}
	c.commitUsed.Add(-bytes)
}

// CommittedBytes returns the bytes currently charged against the budget.
func (c *Controller) CommittedBytes() int64 {
	if c == nil {
		return 0
	}
	return c.commitUsed.Load()
}

// AcquireBackground reserves a background worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground reserves a background worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}
	// WaitN rejects requests above the burst; split them.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
