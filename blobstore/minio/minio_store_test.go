package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/pstgo/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "mail", "archive/")
	assert.Equal(t, "archive/bob.ost", s.key("bob.ost"))
	assert.Equal(t, "bob.ost", s.name("archive/bob.ost"))

	bare := NewStore(nil, "mail", "")
	assert.Equal(t, "bob.ost", bare.key("bob.ost"))
}

// TestStore_Integration runs against PSTGO_MINIO_ENDPOINT when set.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("PSTGO_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("PSTGO_MINIO_ENDPOINT not set")
	}
	bucket := os.Getenv("PSTGO_MINIO_BUCKET")
	if bucket == "" {
		bucket = "pstgo-test"
	}

	ctx := context.Background()
	s, err := Connect(endpoint, "minioadmin", "minioadmin", false, bucket, "it/")
	require.NoError(t, err)

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("MinIO not reachable: %v", err)
	}
	require.True(t, exists, "bucket %s must exist", bucket)

	// 1. Put and read back through the Blob interface
	require.NoError(t, s.Put(ctx, "a.bin", []byte("0123456789")))
	b, err := s.Open(ctx, "a.bin")
	require.NoError(t, err)
	buf := make([]byte, 6)
	n, err := b.ReadAt(ctx, buf, 6)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "6789", string(buf[:n]))

	// 2. Streaming create
	w, err := s.Create(ctx, "b.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "a.bin")
	assert.Contains(t, names, "b.bin")

	// 3. Cleanup
	require.NoError(t, s.Delete(ctx, "a.bin"))
	require.NoError(t, s.Delete(ctx, "b.bin"))
	_, err = s.Open(ctx, "a.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
