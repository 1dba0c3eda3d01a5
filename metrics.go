package shmvec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see package metrics/prometheus.
type MetricsCollector interface {
	// RecordAlloc is called after each allocation attempt.
	RecordAlloc(duration time.Duration, err error)

	// RecordFree is called after each release attempt.
	RecordFree(freed bool, err error)

	// RecordSlide is called after a view maps a different window.
	// appending is true when the slide was caused by a push.
	RecordSlide(appending bool, err error)

	// RecordCommit is called after the committed region grows by bytes.
	RecordCommit(bytes int64, err error)

	// RecordWait is called after each WaitRead.
	RecordWait(result WaitResult, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(time.Duration, error)     {}
func (NoopMetricsCollector) RecordFree(bool, error)               {}
func (NoopMetricsCollector) RecordSlide(bool, error)              {}
func (NoopMetricsCollector) RecordCommit(int64, error)            {}
func (NoopMetricsCollector) RecordWait(WaitResult, time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	AllocCount      atomic.Int64
	AllocErrors     atomic.Int64
	AllocTotalNanos atomic.Int64
	FreeCount       atomic.Int64
	FreeRefused     atomic.Int64
	SlideCount      atomic.Int64
	AppendSlides    atomic.Int64
	SlideErrors     atomic.Int64
	CommitCount     atomic.Int64
	CommitBytes     atomic.Int64
	CommitErrors    atomic.Int64
	WaitUpdated     atomic.Int64
	WaitCompleted   atomic.Int64
	WaitTimeouts    atomic.Int64
	WaitErrors      atomic.Int64
	WaitTotalNanos  atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(freed bool, err error) {
	if freed {
		b.FreeCount.Add(1)
	} else {
		b.FreeRefused.Add(1)
	}
}

// RecordSlide implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlide(appending bool, err error) {
	b.SlideCount.Add(1)
	if appending {
		b.AppendSlides.Add(1)
	}
	if err != nil {
		b.SlideErrors.Add(1)
	}
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(bytes int64, err error) {
	if err != nil {
		b.CommitErrors.Add(1)
		return
	}
	b.CommitCount.Add(1)
	b.CommitBytes.Add(bytes)
}

// RecordWait implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWait(result WaitResult, duration time.Duration) {
	b.WaitTotalNanos.Add(duration.Nanoseconds())
	switch result {
	case WaitUpdated:
		b.WaitUpdated.Add(1)
	case WaitCompleted:
		b.WaitCompleted.Add(1)
	case WaitTimeout:
		b.WaitTimeouts.Add(1)
	default:
		b.WaitErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		AllocCount:    b.AllocCount.Load(),
		AllocErrors:   b.AllocErrors.Load(),
		FreeCount:     b.FreeCount.Load(),
		FreeRefused:   b.FreeRefused.Load(),
		SlideCount:    b.SlideCount.Load(),
		AppendSlides:  b.AppendSlides.Load(),
		SlideErrors:   b.SlideErrors.Load(),
		CommitCount:   b.CommitCount.Load(),
		CommitBytes:   b.CommitBytes.Load(),
		CommitErrors:  b.CommitErrors.Load(),
		WaitUpdated:   b.WaitUpdated.Load(),
		WaitCompleted: b.WaitCompleted.Load(),
		WaitTimeouts:  b.WaitTimeouts.Load(),
		WaitErrors:    b.WaitErrors.Load(),
	}
	if s.AllocCount > 0 {
		s.AllocAvgNanos = b.AllocTotalNanos.Load() / s.AllocCount
	}
	if waits := s.WaitUpdated + s.WaitCompleted + s.WaitTimeouts + s.WaitErrors; waits > 0 {
		s.WaitAvgNanos = b.WaitTotalNanos.Load() / waits
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount    int64
	AllocErrors   int64
	AllocAvgNanos int64
	FreeCount     int64
	FreeRefused   int64
	SlideCount    int64
	AppendSlides  int64
	SlideErrors   int64
	CommitCount   int64
	CommitBytes   int64
	CommitErrors  int64
	WaitUpdated   int64
	WaitCompleted int64
	WaitTimeouts  int64
	WaitErrors    int64
	WaitAvgNanos  int64
}
