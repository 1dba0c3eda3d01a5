package shmvec

import (
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/hupe1980/shmvec/internal/fs"
	"github.com/hupe1980/shmvec/resource"
)

// shmDir is where backing files live when the host offers a RAM file system.
const shmDir = "/dev/shm"

type options struct {
	dir              string
	namespace        string
	logger           *Logger
	metricsCollector MetricsCollector
	rc               *resource.Controller
	commitLimit      int64
	fsys             fs.FileSystem
	copyWindows      bool
}

// Option configures NewRegistry and Attach.
type Option func(*options)

// WithDir sets the directory holding namespaces.
// Defaults to /dev/shm when present, else os.TempDir().
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithNamespace names the registry. Both processes must use the same namespace.
// NewRegistry defaults to a fresh UUIDv7.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := shmvec.NewJSONLogger(slog.LevelInfo)
//	reg, _ := shmvec.NewRegistry(shmvec.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
//	metrics := &shmvec.BasicMetricsCollector{}
//	reg, _ := shmvec.NewRegistry(shmvec.WithMetricsCollector(metrics))
//	// ...
//	fmt.Println(metrics.GetStats().CommitBytes)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithResourceController charges commits against rc.
// A controller can be shared by several registries.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithCommitLimit bounds the bytes this registry may commit.
// Ignored when WithResourceController is also given.
func WithCommitLimit(bytes int64) Option {
	return func(o *options) {
		o.commitLimit = bytes
	}
}

// WithFileSystem replaces the file system used for backing files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithCopyWindows makes views copy windows through a private buffer instead
// of mapping them.
func WithCopyWindows(enabled bool) Option {
	return func(o *options) {
		o.copyWindows = enabled
	}
}

// DefaultDir is the backing directory used when WithDir is not given.
func DefaultDir() string {
	if fi, err := os.Stat(shmDir); err == nil && fi.IsDir() {
		return shmDir
	}
	return os.TempDir()
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fsys:             fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.dir == "" {
		o.dir = DefaultDir()
	}
	if o.namespace == "" {
		o.namespace = uuid.Must(uuid.NewV7()).String()
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.fsys == nil {
		o.fsys = fs.Default
	}
	if o.rc == nil && o.commitLimit > 0 {
		o.rc = resource.NewController(resource.Config{CommitLimitBytes: o.commitLimit})
	}
	return o
}
