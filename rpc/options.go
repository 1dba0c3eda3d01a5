package rpc

import (
	"time"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/internal/fs"
)

// DefaultPollInterval bounds how long either side blocks before checking its
// context and the peer process.
const DefaultPollInterval = 100 * time.Millisecond

type options struct {
	logger *shmvec.Logger
	poll   time.Duration
	fsys   fs.FileSystem
}

// Option configures NewHost and Dial.
type Option func(*options)

// WithLogger sets the logger. Defaults to NoopLogger.
func WithLogger(l *shmvec.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPollInterval sets the liveness check interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.poll = d }
}

func applyOptions(optFns []Option) options {
	o := options{
		logger: shmvec.NoopLogger(),
		poll:   DefaultPollInterval,
		fsys:   fs.Default,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.poll <= 0 {
		o.poll = DefaultPollInterval
	}
	return o
}
