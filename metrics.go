package memarena

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting allocator metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAlloc is called after each allocation, including the ones made
	// by Strdup, Sprintf and Realloc.
	RecordAlloc(size int, backing Backing, duration time.Duration, err error)

	// RecordFree is called after each single release.
	RecordFree(size int, err error)

	// RecordRealloc is called after each resize.
	RecordRealloc(oldSize, newSize int, err error)

	// RecordDestroy is called after each bulk release.
	RecordDestroy(chunks, bytes int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int, Backing, time.Duration, error) {}
func (NoopMetricsCollector) RecordFree(int, error)                         {}
func (NoopMetricsCollector) RecordRealloc(int, int, error)                 {}
func (NoopMetricsCollector) RecordDestroy(int, int, error)                 {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// It is safe for concurrent use.
type BasicMetricsCollector struct {
	AllocCount       atomic.Int64
	AllocErrors      atomic.Int64
	AllocBytes       atomic.Int64
	AllocTotalNanos  atomic.Int64
	MappedAllocCount atomic.Int64
	FreeCount        atomic.Int64
	FreeErrors       atomic.Int64
	FreeBytes        atomic.Int64
	ReallocCount     atomic.Int64
	ReallocErrors    atomic.Int64
	DestroyCount     atomic.Int64
	DestroyErrors    atomic.Int64
	DestroyChunks    atomic.Int64
	DestroyBytes     atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(size int, backing Backing, duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(int64(size))
	if backing == Mapped {
		b.MappedAllocCount.Add(1)
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(size int, err error) {
	b.FreeCount.Add(1)
	if err != nil {
		b.FreeErrors.Add(1)
		return
	}
	b.FreeBytes.Add(int64(size))
}

// RecordRealloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRealloc(_, _ int, err error) {
	b.ReallocCount.Add(1)
	if err != nil {
		b.ReallocErrors.Add(1)
	}
}

// RecordDestroy implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDestroy(chunks, bytes int, err error) {
	b.DestroyCount.Add(1)
	if err != nil {
		b.DestroyErrors.Add(1)
	}
	b.DestroyChunks.Add(int64(chunks))
	b.DestroyBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:       b.AllocCount.Load(),
		AllocErrors:      b.AllocErrors.Load(),
		AllocBytes:       b.AllocBytes.Load(),
		AllocAvgNanos:    b.avgAllocNanos(),
		MappedAllocCount: b.MappedAllocCount.Load(),
		FreeCount:        b.FreeCount.Load(),
		FreeErrors:       b.FreeErrors.Load(),
		FreeBytes:        b.FreeBytes.Load(),
		ReallocCount:     b.ReallocCount.Load(),
		ReallocErrors:    b.ReallocErrors.Load(),
		DestroyCount:     b.DestroyCount.Load(),
		DestroyErrors:    b.DestroyErrors.Load(),
		DestroyChunks:    b.DestroyChunks.Load(),
		DestroyBytes:     b.DestroyBytes.Load(),
	}
}

func (b *BasicMetricsCollector) avgAllocNanos() int64 {
	count := b.AllocCount.Load()
	if count == 0 {
		return 0
	}
	return b.AllocTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	AllocCount       int64
	AllocErrors      int64
	AllocBytes       int64
	AllocAvgNanos    int64
	MappedAllocCount int64
	FreeCount        int64
	FreeErrors       int64
	FreeBytes        int64
	ReallocCount     int64
	ReallocErrors    int64
	DestroyCount     int64
	DestroyErrors    int64
	DestroyChunks    int64
	DestroyBytes     int64
}
