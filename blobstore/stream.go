package blobstore

import (
	"context"
	"io"
	"sync"
)

// NewStreamBlob adapts a seekable stream. Streams that also implement
// io.ReaderAt are read positionally; others are seeked under a lock.
// The size is found lazily with a seek to the end. Closing the blob closes
// the stream if it implements io.Closer.
func NewStreamBlob(rs io.ReadSeeker) Blob {
	return &streamBlob{rs: rs, size: -1}
}

type streamBlob struct {
	mu   sync.Mutex
	rs   io.ReadSeeker
	size int64
}

func (b *streamBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ra, ok := b.rs.(io.ReaderAt); ok {
		return ra.ReadAt(p, off)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(b.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func (b *streamBlob) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size >= 0 {
		return b.size
	}
	cur, err := b.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	end, err := b.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return -1
	}
	if _, err := b.rs.Seek(cur, io.SeekStart); err != nil {
		return -1
	}
	b.size = end
	return end
}

func (b *streamBlob) Close() error {
	if c, ok := b.rs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
