package blobstore

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/hupe1980/pstgo/internal/cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultChunkSize matches the page size of 4K-format containers and is a
// multiple of the 512-byte pages used by older files.
const DefaultChunkSize = 4096

// CachingStore wraps a Store and caches aligned chunks of every blob it opens.
type CachingStore struct {
	inner     Store
	cache     cache.BlockCache
	chunkSize int64
}

// NewCachingStore creates a CachingStore. chunkSize defaults to DefaultChunkSize if <= 0.
func NewCachingStore(inner Store, c cache.BlockCache, chunkSize int64) *CachingStore {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &CachingStore{inner: inner, cache: c, chunkSize: chunkSize}
}

// Open opens a blob through the cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return NewCachingBlob(b, s.cache, name, s.chunkSize), nil
}

// Invalidate drops cached chunks of a blob.
func (s *CachingStore) Invalidate(name string) {
	s.cache.Invalidate(func(key cache.CacheKey) bool {
		return key.Kind == cache.CacheKindBlob && key.Path == name
	})
}

// CachingBlob serves reads from aligned cached chunks, fetching contiguous
// runs of missing chunks with one backend request each.
type CachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	chunkSize int64
	sf        singleflight.Group
}

// NewCachingBlob wraps b. name keys the chunks in c and must be unique per blob.
func NewCachingBlob(b Blob, c cache.BlockCache, name string, chunkSize int64) *CachingBlob {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &CachingBlob{inner: b, cache: c, name: name, chunkSize: chunkSize}
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) key(chunk int64) cache.CacheKey {
	return cache.CacheKey{Kind: cache.CacheKindBlob, Path: b.name, Offset: uint64(chunk)}
}

// ReadAt implements Blob.
func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 || off >= size {
		return 0, io.EOF
	}

	first := off / b.chunkSize
	last := (min(off+int64(len(p)), size) - 1) / b.chunkSize
	if err := b.fill(ctx, first, last); err != nil {
		return 0, err
	}

	total := 0
	for chunk := first; chunk <= last; chunk++ {
		data, err := b.chunk(ctx, chunk)
		if err != nil {
			return total, err
		}
		start := chunk * b.chunkSize
		from := max(start, off) - start
		if from >= int64(len(data)) {
			break
		}
		total += copy(p[max(start, off)-off:], data[from:])
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fill loads missing chunks in [first, last], one request per contiguous run.
func (b *CachingBlob) fill(ctx context.Context, first, last int64) error {
	type run struct{ start, count int64 }
	var runs []run

	for chunk := first; chunk <= last; chunk++ {
		if _, ok := b.cache.Get(ctx, b.key(chunk)); ok {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].start+runs[n-1].count == chunk {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{start: chunk, count: 1})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, r := range runs {
		g.Go(func() error {
			return b.fetch(gctx, r.start, r.count)
		})
	}
	return g.Wait()
}

func (b *CachingBlob) fetch(ctx context.Context, start, count int64) error {
	off := start * b.chunkSize
	n := min(count*b.chunkSize, b.Size()-off)
	if n <= 0 {
		return nil
	}

	buf := make([]byte, n)
	read, err := b.inner.ReadAt(ctx, buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	buf = buf[:read]

	for i := int64(0); i < count; i++ {
		lo := i * b.chunkSize
		if lo >= int64(len(buf)) {
			break
		}
		hi := min(lo+b.chunkSize, int64(len(buf)))
		// Copy so a single small chunk does not pin the whole run.
		b.cache.Set(ctx, b.key(start+i), append([]byte(nil), buf[lo:hi]...))
	}
	return nil
}

// chunk returns one chunk, reading it directly when the cache declined it.
func (b *CachingBlob) chunk(ctx context.Context, idx int64) ([]byte, error) {
	if data, ok := b.cache.Get(ctx, b.key(idx)); ok {
		return data, nil
	}

	v, err, _ := b.sf.Do(strconv.FormatInt(idx, 10), func() (any, error) {
		off := idx * b.chunkSize
		buf := make([]byte, min(b.chunkSize, b.Size()-off))
		n, err := b.inner.ReadAt(ctx, buf, off)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		buf = buf[:n]
		b.cache.Set(ctx, b.key(idx), buf)
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
