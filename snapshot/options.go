package snapshot

import (
	"runtime"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/resource"
)

// Options configures Export and Import.
type Options struct {
	// Codec compresses blocks on export. Import reads it from the header.
	Codec Codec

	// Concurrency bounds the windows compressed in parallel.
	// Defaults to GOMAXPROCS.
	Concurrency int

	// Resource supplies background worker slots and the IO rate limit.
	// Nil means unlimited.
	Resource *resource.Controller

	// Logger receives one record per snapshot. Defaults to NoopLogger.
	Logger *shmvec.Logger
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = shmvec.NoopLogger()
	}
	return o
}
