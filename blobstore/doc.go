// Package blobstore provides the byte sources a container is read from and
// the sinks extracted attachments are written to.
//
// A Blob is a random-access, context-aware reader:
//
//	type Blob interface {
//	    ReadAt(ctx, p, off) (int, error)
//	    Size() int64
//	    Close() error
//	}
//
// Built-in sources:
//
//   - OpenFile: local files, memory mapped (falls back to positional reads)
//   - NewStreamBlob: any io.ReadSeeker
//   - NewBytesBlob: an in-memory container
//   - s3.Store and minio.Store: object storage with ranged GETs
//
// Remote blobs are usually wrapped in a CachingBlob so that B-tree descents
// turn into a handful of aligned, cached range requests.
//
// BlobStore adds the write side (Create, Put, Delete, List) used when saving
// attachments. LocalStore, MemoryStore, s3.Store and minio.Store implement it.
package blobstore
