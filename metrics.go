package pstgo

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/pstgo/internal/cache"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordOpen is called after each Open.
	RecordOpen(duration time.Duration, err error)

	// RecordBlockRead is called after each read from the byte source.
	// kind is "page" or "block".
	RecordBlockRead(kind string, bytes int, duration time.Duration, err error)

	// RecordCacheLookup is called for each page or block cache lookup.
	RecordCacheLookup(kind string, hit bool)

	// RecordDecode is called after decoding a property or table context.
	// what is "pc" or "tc".
	RecordDecode(what string, duration time.Duration, err error)

	// RecordRowError is called when enumeration skips a row.
	RecordRowError(table string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(time.Duration, error)                   {}
func (NoopMetricsCollector) RecordBlockRead(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordCacheLookup(string, bool)                    {}
func (NoopMetricsCollector) RecordDecode(string, time.Duration, error)         {}
func (NoopMetricsCollector) RecordRowError(string)                             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount       atomic.Int64
	OpenErrors      atomic.Int64
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadBytes       atomic.Int64
	ReadTotalNanos  atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
	DecodeCount     atomic.Int64
	DecodeErrors    atomic.Int64
	DecodeTotalNano atomic.Int64
	RowErrors       atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(_ time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordBlockRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBlockRead(_ string, bytes int, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(int64(bytes))
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordCacheLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheLookup(_ string, hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// RecordDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecode(_ string, duration time.Duration, err error) {
	b.DecodeCount.Add(1)
	b.DecodeTotalNano.Add(duration.Nanoseconds())
	if err != nil {
		b.DecodeErrors.Add(1)
	}
}

// RecordRowError implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRowError(string) {
	b.RowErrors.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:      b.OpenCount.Load(),
		OpenErrors:     b.OpenErrors.Load(),
		ReadCount:      b.ReadCount.Load(),
		ReadErrors:     b.ReadErrors.Load(),
		ReadBytes:      b.ReadBytes.Load(),
		ReadAvgNanos:   avg(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
		CacheHits:      b.CacheHits.Load(),
		CacheMisses:    b.CacheMisses.Load(),
		DecodeCount:    b.DecodeCount.Load(),
		DecodeErrors:   b.DecodeErrors.Load(),
		DecodeAvgNanos: avg(b.DecodeTotalNano.Load(), b.DecodeCount.Load()),
		RowErrors:      b.RowErrors.Load(),
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
	OpenCount      int64
	OpenErrors     int64
	ReadCount      int64
	ReadErrors     int64
	ReadBytes      int64
	ReadAvgNanos   int64
	CacheHits      int64
	CacheMisses    int64
	DecodeCount    int64
	DecodeErrors   int64
	DecodeAvgNanos int64
	RowErrors      int64
}

// metricsObserver forwards database events to a MetricsCollector.
type metricsObserver struct {
	mc MetricsCollector
}

func (o metricsObserver) ObserveRead(kind cache.CacheKind, bytes int, d time.Duration, err error) {
	o.mc.RecordBlockRead(kind.String(), bytes, d, err)
}

func (o metricsObserver) ObserveCache(kind cache.CacheKind, hit bool) {
	o.mc.RecordCacheLookup(kind.String(), hit)
}
