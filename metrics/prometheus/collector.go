// Package prometheus exports shmvec registry metrics through
// prometheus/client_golang.
package prometheus

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/shmvec"
)

// DefaultNamespace prefixes every metric name unless Options.Namespace is set.
const DefaultNamespace = "shmvec"

// Options configures a Collector.
type Options struct {
	// Namespace prefixes metric names. Defaults to DefaultNamespace.
	Namespace string
	// ConstLabels are attached to every metric, e.g. the registry namespace.
	ConstLabels prometheus.Labels
	// Buckets for the latency histograms. Defaults to prometheus.DefBuckets.
	Buckets []float64
}

// Collector implements shmvec.MetricsCollector on Prometheus metrics.
type Collector struct {
	opLatency *prometheus.HistogramVec
	frees     *prometheus.CounterVec
	slides    *prometheus.CounterVec
	commits   *prometheus.CounterVec
	committed prometheus.Counter
	waits     *prometheus.CounterVec
}

var _ shmvec.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, opts Options) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Name:        "operation_latency_seconds",
			Help:        "Latency of registry allocations and read waits",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{"op", "status"}),
		frees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "frees_total",
			Help:        "Free attempts by outcome",
			ConstLabels: opts.ConstLabels,
		}, []string{"status"}),
		slides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "window_slides_total",
			Help:        "Window remaps by cause and outcome",
			ConstLabels: opts.ConstLabels,
		}, []string{"cause", "status"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "commits_total",
			Help:        "Commit attempts by outcome",
			ConstLabels: opts.ConstLabels,
		}, []string{"status"}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "committed_bytes_total",
			Help:        "Bytes committed to backing storage",
			ConstLabels: opts.ConstLabels,
		}),
		waits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "read_waits_total",
			Help:        "WaitRead calls by result",
			ConstLabels: opts.ConstLabels,
		}, []string{"result"}),
	}

	var err error
	register(reg, &c.opLatency, &err)
	register(reg, &c.frees, &err)
	register(reg, &c.slides, &err)
	register(reg, &c.commits, &err)
	register(reg, &c.committed, &err)
	register(reg, &c.waits, &err)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// register registers *m, switching to the existing collector when an equal
// one is already registered.
func register[M prometheus.Collector](reg prometheus.Registerer, m *M, errp *error) {
	if *errp != nil {
		return
	}
	err := reg.Register(*m)
	if err == nil {
		return
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(M); ok {
			*m = existing
			return
		}
	}
	*errp = err
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer, opts Options) *Collector {
	c, err := New(reg, opts)
	if err != nil {
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAlloc implements shmvec.MetricsCollector.
func (c *Collector) RecordAlloc(d time.Duration, err error) {
	c.opLatency.WithLabelValues("alloc", status(err)).Observe(d.Seconds())
}

// RecordFree implements shmvec.MetricsCollector.
func (c *Collector) RecordFree(freed bool, err error) {
	switch {
	case freed:
		c.frees.WithLabelValues("freed").Inc()
	case errors.Is(err, shmvec.ErrInUse):
		c.frees.WithLabelValues("in_use").Inc()
	case err != nil:
		c.frees.WithLabelValues("error").Inc()
	default:
		c.frees.WithLabelValues("not_freed").Inc()
	}
}

// RecordSlide implements shmvec.MetricsCollector.
func (c *Collector) RecordSlide(appending bool, err error) {
	cause := "seek"
	if appending {
		cause = "append"
	}
	c.slides.WithLabelValues(cause, status(err)).Inc()
}

// RecordCommit implements shmvec.MetricsCollector.
func (c *Collector) RecordCommit(bytes int64, err error) {
	c.commits.WithLabelValues(status(err)).Inc()
	if err == nil && bytes > 0 {
		c.committed.Add(float64(bytes))
	}
}

// RecordWait implements shmvec.MetricsCollector.
func (c *Collector) RecordWait(result shmvec.WaitResult, d time.Duration) {
	st := "success"
	if result == shmvec.WaitFailed {
		st = "error"
	}
	c.waits.WithLabelValues(result.String()).Inc()
	c.opLatency.WithLabelValues("wait_read", st).Observe(d.Seconds())
}
