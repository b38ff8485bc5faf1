package cache

import (
	"context"
)

// CacheKind separates key spaces.
type CacheKind uint8

const (
	CacheKindUnknown CacheKind = iota
	CacheKindPage              // B-tree pages, keyed by file offset
	CacheKindBlock             // decoded data blocks, keyed by BID
	CacheKindBlob              // aligned chunks of a remote blob
)

func (k CacheKind) String() string {
	switch k {
	case CacheKindPage:
		return "page"
	case CacheKindBlock:
		return "block"
	case CacheKindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// CacheKey identifies an immutable cached value. Source distinguishes files that
// share one cache; Generation is bumped when a file handle drops its caches.
type CacheKey struct {
	Kind       CacheKind
	Source     uint64
	Generation uint64
	// Offset is a logical identifier (file offset, BID or chunk index).
	Offset uint64
	// Path identifies a blob by name when Source is not known.
	Path string
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a block. The caller must not modify b afterwards.
	Set(ctx context.Context, key CacheKey, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key CacheKey) bool)
	// Close releases any resources.
	Close() error
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, CacheKey) ([]byte, bool) { return nil, false }
func (NoopCache) Set(context.Context, CacheKey, []byte)        {}
func (NoopCache) Invalidate(func(CacheKey) bool)               {}
func (NoopCache) Close() error                                 { return nil }
func (NoopCache) Stats() (hits, misses int64)                  { return 0, 0 }
