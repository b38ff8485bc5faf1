package pstgo

import (
	"io"

	"github.com/hupe1980/pstgo/blobstore"
)

type sourceKind uint8

const (
	sourceLocal sourceKind = iota + 1
	sourceStream
	sourceRemote
	sourceBytes
)

// Source selects the byte source of a file. Exactly one of path or stream
// is active per handle.
type Source struct {
	kind   sourceKind
	path   string
	stream io.ReadSeeker
	blob   blobstore.Blob
	name   string
	data   []byte
}

// Local opens a file by path. Regular files are memory mapped.
func Local(path string) Source {
	return Source{kind: sourceLocal, path: path, name: path}
}

// Stream reads from a caller-owned seekable stream. The stream is not
// closed by File.Close.
func Stream(rs io.ReadSeeker) Source {
	return Source{kind: sourceStream, stream: rs, name: "stream"}
}

// Remote reads from a blob, typically opened from blobstore/s3 or
// blobstore/minio. Reads go through the block cache in aligned chunks.
// The blob is not closed by File.Close.
func Remote(blob blobstore.Blob, name string) Source {
	return Source{kind: sourceRemote, blob: blob, name: name}
}

// Bytes reads from an in-memory image.
func Bytes(data []byte) Source {
	return Source{kind: sourceBytes, data: data, name: "memory"}
}

// String names the source for logs.
func (s Source) String() string { return s.name }

// remoteChunkSize is the read granularity for remote blobs.
const remoteChunkSize = 256 << 10

// open returns the blob and whether File owns it.
func (s Source) open(o options) (blobstore.Blob, bool, error) {
	switch s.kind {
	case sourceLocal:
		b, err := blobstore.OpenFile(s.path)
		return b, true, err
	case sourceStream:
		if s.stream == nil {
			return nil, false, ErrInvalidOperation
		}
		return blobstore.NewStreamBlob(s.stream), false, nil
	case sourceRemote:
		if s.blob == nil {
			return nil, false, ErrInvalidOperation
		}
		return blobstore.NewCachingBlob(s.blob, o.cache, s.name, remoteChunkSize), false, nil
	case sourceBytes:
		return blobstore.NewBytesBlob(s.data), true, nil
	default:
		return nil, false, ErrInvalidOperation
	}
}
