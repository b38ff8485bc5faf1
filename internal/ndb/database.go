package ndb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/internal/cache"
	"github.com/hupe1980/pstgo/internal/conv"
	"github.com/hupe1980/pstgo/resource"
	"golang.org/x/sync/singleflight"
)

// Limits bound the work a malformed file can cause.
type Limits struct {
	// MaxTreeDepth bounds B-tree descents and XBLOCK nesting.
	MaxTreeDepth int
	// MaxDataBlocks bounds the leaf blocks of one node's data tree.
	MaxDataBlocks int
	// MaxNodeSize bounds the total data size of one node.
	MaxNodeSize int64
}

// DefaultLimits returns limits that admit every well-formed file.
func DefaultLimits() Limits {
	return Limits{
		MaxTreeDepth:  8,
		MaxDataBlocks: 1 << 20,
		MaxNodeSize:   1 << 32,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxTreeDepth <= 0 {
		l.MaxTreeDepth = d.MaxTreeDepth
	}
	if l.MaxDataBlocks <= 0 {
		l.MaxDataBlocks = d.MaxDataBlocks
	}
	if l.MaxNodeSize <= 0 {
		l.MaxNodeSize = d.MaxNodeSize
	}
	return l
}

// Observer receives read and cache events.
type Observer interface {
	// ObserveRead is called after each read from the byte source.
	ObserveRead(kind cache.CacheKind, bytes int, d time.Duration, err error)
	// ObserveCache is called for each page or block cache lookup.
	ObserveCache(kind cache.CacheKind, hit bool)
}

// Options configures a Database.
type Options struct {
	// VerifyChecksums enables header, page and block CRC checks.
	// Stored checksums of zero are never checked.
	VerifyChecksums bool
	Limits          Limits
	// Cache holds validated pages and decoded blocks. Nil disables caching.
	Cache    cache.BlockCache
	Resource *resource.Controller
	Observer Observer
}

var sourceIDs atomic.Uint64

// Database resolves nodes and blocks of one container. All reads from the
// byte source are serialized; lookups may be called concurrently.
type Database struct {
	blob   blobstore.Blob
	header *Header
	opts   Options

	id  uint64
	gen atomic.Uint64

	mu sync.Mutex // serializes byte source reads

	nodes  sync.Map // NID -> NodeEntry
	blocks sync.Map // BID -> BlockEntry
	sf     singleflight.Group
}

// Open reads the header and prepares the database. The blob stays owned by
// the caller.
func Open(ctx context.Context, blob blobstore.Blob, opts Options) (*Database, error) {
	opts.Limits = opts.Limits.withDefaults()
	if opts.Cache == nil {
		opts.Cache = cache.NoopCache{}
	}

	h, err := ReadHeader(ctx, blob, opts.VerifyChecksums)
	if err != nil {
		return nil, err
	}

	return &Database{
		blob:   blob,
		header: h,
		opts:   opts,
		id:     sourceIDs.Add(1),
	}, nil
}

// Header returns the decoded file header.
func (db *Database) Header() *Header { return db.header }

// Format returns the physical layout.
func (db *Database) Format() Format { return db.header.Format }

// Limits returns the effective limits.
func (db *Database) Limits() Limits { return db.opts.Limits }

// Generation returns the current cache generation.
func (db *Database) Generation() uint64 { return db.gen.Load() }

// Reset drops all cached entries and starts a new generation.
func (db *Database) Reset() uint64 {
	gen := db.gen.Add(1)
	db.nodes.Clear()
	db.blocks.Clear()
	db.opts.Cache.Invalidate(func(k cache.CacheKey) bool {
		return k.Source == db.id && k.Generation < gen
	})
	return gen
}

func (db *Database) cacheKey(kind cache.CacheKind, off uint64) cache.CacheKey {
	return cache.CacheKey{Kind: kind, Source: db.id, Generation: db.gen.Load(), Offset: off}
}

// cached returns a cached page or block, or loads it once across
// concurrent callers.
func (db *Database) cached(ctx context.Context, kind cache.CacheKind, off uint64, load func() ([]byte, error)) ([]byte, error) {
	key := db.cacheKey(kind, off)
	if b, ok := db.opts.Cache.Get(ctx, key); ok {
		db.observeCache(kind, true)
		return b, nil
	}
	db.observeCache(kind, false)

	v, err, _ := db.sf.Do(fmt.Sprintf("%d/%d/%d", kind, key.Generation, off), func() (any, error) {
		b, err := load()
		if err != nil {
			return nil, err
		}
		db.opts.Cache.Set(ctx, key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// readAt fills p from the byte source. A short read means a reference past
// the end of the file and is reported as corruption.
func (db *Database) readAt(ctx context.Context, kind cache.CacheKind, p []byte, off uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pos, err := conv.Uint64ToInt64(off)
	if err != nil {
		return corruptf("offset: %v", err)
	}
	if err := db.opts.Resource.AcquireIO(ctx, len(p)); err != nil {
		return err
	}

	start := time.Now()
	db.mu.Lock()
	n, err := db.blob.ReadAt(ctx, p, pos)
	db.mu.Unlock()

	if n == len(p) {
		err = nil
	} else if err == nil || errors.Is(err, io.EOF) {
		err = corruptf("reference beyond end of file: offset %d, %d of %d bytes", off, n, len(p))
	} else {
		err = fmt.Errorf("%w: read %d bytes at %d: %w", ErrIO, len(p), off, err)
	}
	if db.opts.Observer != nil {
		db.opts.Observer.ObserveRead(kind, n, time.Since(start), err)
	}
	return err
}

func (db *Database) observeCache(kind cache.CacheKind, hit bool) {
	if db.opts.Observer != nil {
		db.opts.Observer.ObserveCache(kind, hit)
	}
}
