package segread

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    getCounter     prometheus.Counter
//	    mergeHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordMerge(shards, hits int, duration time.Duration, err error) {
//	    p.mergeHistogram.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordDirectoryGet is called after each directory acquisition.
	RecordDirectoryGet(duration time.Duration, err error)

	// RecordRelease is called after each directory release.
	RecordRelease(err error)

	// RecordSearch is called after each sorted collection.
	RecordSearch(totalHits int, duration time.Duration, err error)

	// RecordMerge is called after each cross-shard merge.
	// shards is the number of inputs, hits the number of hits returned.
	RecordMerge(shards, hits int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordDirectoryGet(time.Duration, error)    {}
func (NoopMetricsCollector) RecordRelease(error)                        {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordMerge(int, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GetCount        atomic.Int64
	GetErrors       atomic.Int64
	GetTotalNanos   atomic.Int64
	ReleaseCount    atomic.Int64
	ReleaseErrors   atomic.Int64
	SearchCount     atomic.Int64
	SearchErrors    atomic.Int64
	SearchHits      atomic.Int64
	MergeCount      atomic.Int64
	MergeErrors     atomic.Int64
	MergeShards     atomic.Int64
	MergeHits       atomic.Int64
	MergeTotalNanos atomic.Int64
}

// RecordDirectoryGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDirectoryGet(duration time.Duration, err error) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GetErrors.Add(1)
	}
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(err error) {
	b.ReleaseCount.Add(1)
	if err != nil {
		b.ReleaseErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(totalHits int, _ time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchHits.Add(int64(totalHits))
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(shards, hits int, duration time.Duration, err error) {
	b.MergeCount.Add(1)
	b.MergeShards.Add(int64(shards))
	b.MergeHits.Add(int64(hits))
	b.MergeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GetCount:      b.GetCount.Load(),
		GetErrors:     b.GetErrors.Load(),
		GetAvgNanos:   avg(b.GetTotalNanos.Load(), b.GetCount.Load()),
		ReleaseCount:  b.ReleaseCount.Load(),
		ReleaseErrors: b.ReleaseErrors.Load(),
		SearchCount:   b.SearchCount.Load(),
		SearchErrors:  b.SearchErrors.Load(),
		SearchHits:    b.SearchHits.Load(),
		MergeCount:    b.MergeCount.Load(),
		MergeErrors:   b.MergeErrors.Load(),
		MergeShards:   b.MergeShards.Load(),
		MergeHits:     b.MergeHits.Load(),
		MergeAvgNanos: avg(b.MergeTotalNanos.Load(), b.MergeCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GetCount      int64
	GetErrors     int64
	GetAvgNanos   int64
	ReleaseCount  int64
	ReleaseErrors int64
	SearchCount   int64
	SearchErrors  int64
	SearchHits    int64
	MergeCount    int64
	MergeErrors   int64
	MergeShards   int64
	MergeHits     int64
	MergeAvgNanos int64
}
