// Package prometheus exports pstgo metrics through prometheus/client_golang.
package prometheus

import (
	"time"

	"github.com/hupe1980/pstgo"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements pstgo.MetricsCollector.
type Collector struct {
	opens       *prometheus.CounterVec
	openLatency prometheus.Histogram
	reads       *prometheus.CounterVec
	readBytes   *prometheus.CounterVec
	readLatency *prometheus.HistogramVec
	cache       *prometheus.CounterVec
	decodes     *prometheus.CounterVec
	decodeTime  *prometheus.HistogramVec
	rowErrors   *prometheus.CounterVec
}

var _ pstgo.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pstgo_opens_total",
			Help: "Files opened",
		}, []string{"status"}),
		openLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pstgo_open_duration_seconds",
			Help:    "Latency of Open",
			Buckets: prometheus.DefBuckets,
		}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pstgo_reads_total",
			Help: "Page and block reads from the byte source",
		}, []string{"kind", "status"}),
		readBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pstgo_read_bytes_total",
			Help: "Bytes read from the byte source",
		}, []string{"kind"}),
		readLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pstgo_read_duration_seconds",
			Help:    "Latency of page and block reads",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"kind"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pstgo_cache_lookups_total",
			Help: "Block cache lookups",
		}, []string{"kind", "result"}),
		decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pstgo_decodes_total",
			Help: "Property and table context decodes",
		}, []string{"what", "status"}),
		decodeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pstgo_decode_duration_seconds",
			Help:    "Latency of context decodes",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"what"}),
		rowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pstgo_row_errors_total",
			Help: "Table rows skipped during enumeration",
		}, []string{"table"}),
	}
	for _, col := range []prometheus.Collector{
		c.opens, c.openLatency, c.reads, c.readBytes, c.readLatency,
		c.cache, c.decodes, c.decodeTime, c.rowErrors,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordOpen implements pstgo.MetricsCollector.
func (c *Collector) RecordOpen(d time.Duration, err error) {
	c.opens.WithLabelValues(status(err)).Inc()
	c.openLatency.Observe(d.Seconds())
}

// RecordBlockRead implements pstgo.MetricsCollector.
func (c *Collector) RecordBlockRead(kind string, bytes int, d time.Duration, err error) {
	c.reads.WithLabelValues(kind, status(err)).Inc()
	c.readBytes.WithLabelValues(kind).Add(float64(bytes))
	c.readLatency.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordCacheLookup implements pstgo.MetricsCollector.
func (c *Collector) RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cache.WithLabelValues(kind, result).Inc()
}

// RecordDecode implements pstgo.MetricsCollector.
func (c *Collector) RecordDecode(what string, d time.Duration, err error) {
	c.decodes.WithLabelValues(what, status(err)).Inc()
	c.decodeTime.WithLabelValues(what).Observe(d.Seconds())
}

// RecordRowError implements pstgo.MetricsCollector.
func (c *Collector) RecordRowError(table string) {
	c.rowErrors.WithLabelValues(table).Inc()
}
