package pstgo

import (
	"log/slog"

	"github.com/hupe1980/pstgo/internal/cache"
	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/resource"
)

// BlockCache caches validated pages and decoded blocks. One cache may be
// shared by several open files.
type BlockCache = cache.BlockCache

// NewBlockCache returns a sharded LRU cache holding up to capacity bytes.
func NewBlockCache(capacity int64) BlockCache {
	return cache.NewShardedLRUBlockCache(capacity, nil)
}

// Limits bounds the work spent on hostile or corrupt input. Exceeding a
// limit fails with ErrCorrupt. Zero fields take the defaults.
type Limits struct {
	// MaxTreeDepth caps B-tree and XBLOCK nesting.
	MaxTreeDepth int
	// MaxDataBlocks caps the leaf blocks of one node's data tree.
	MaxDataBlocks int
	// MaxNodeSize caps the assembled size of one node's data.
	MaxNodeSize int64
}

// DefaultBlockCacheSize is the capacity of the cache Open creates when
// neither WithBlockCache nor WithBlockCacheSize is given.
const DefaultBlockCacheSize = 32 << 20

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	cache            BlockCache
	cacheSize        int64
	verifyChecksums  bool
	limits           Limits
	resource         *resource.Controller
	codePage         int
}

// Option configures Open.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring reads,
// cache lookups and decoding. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &pstgo.BasicMetricsCollector{}
//	f, _ := pstgo.Open(ctx, pstgo.Local("mail.pst"), pstgo.WithMetricsCollector(metrics))
//	// ... use f ...
//	stats := metrics.GetStats()
//	fmt.Printf("Reads: %d, Cache hits: %d\n", stats.ReadCount, stats.CacheHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := pstgo.NewJSONLogger(slog.LevelInfo)
//	f, _ := pstgo.Open(ctx, pstgo.Local("mail.pst"), pstgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlockCache uses c for pages and blocks. Pass nil to disable caching.
func WithBlockCache(c BlockCache) Option {
	return func(o *options) {
		if c == nil {
			c = cache.NoopCache{}
		}
		o.cache = c
	}
}

// WithBlockCacheSize sizes the cache Open creates. Zero disables caching.
func WithBlockCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheSize = bytes
	}
}

// WithVerifyChecksums enables CRC verification of the header, pages and
// blocks. Stored checksums of zero are never checked.
func WithVerifyChecksums(verify bool) Option {
	return func(o *options) {
		o.verifyChecksums = verify
	}
}

// WithLimits overrides the default decoding limits.
func WithLimits(l Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithResourceController throttles reads and accounts cache memory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resource = rc
	}
}

// WithDefaultCodePage sets the code page for 8-bit strings of elements
// that do not declare one. The default is 1252.
func WithDefaultCodePage(cp int) Option {
	return func(o *options) {
		o.codePage = cp
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		cacheSize:        DefaultBlockCacheSize,
		codePage:         ltp.DefaultCodePage,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.cache == nil {
		if o.cacheSize > 0 {
			o.cache = cache.NewShardedLRUBlockCache(o.cacheSize, o.resource)
		} else {
			o.cache = cache.NoopCache{}
		}
	}
	return o
}

func (o options) ndbOptions() ndb.Options {
	return ndb.Options{
		VerifyChecksums: o.verifyChecksums,
		Limits: ndb.Limits{
			MaxTreeDepth:  o.limits.MaxTreeDepth,
			MaxDataBlocks: o.limits.MaxDataBlocks,
			MaxNodeSize:   o.limits.MaxNodeSize,
		},
		Cache:    o.cache,
		Resource: o.resource,
		Observer: metricsObserver{mc: o.metricsCollector},
	}
}
