package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	// 1. Create a blob
	data := []byte("attachment payload extracted from a container")
	w, err := store.Create(ctx, "inbox/report.pdf")
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "inbox", "report.pdf"))
	require.NoError(t, err)

	// 2. Open and ReadAt
	b, err := store.Open(ctx, "inbox/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 10)
	n, err = b.ReadAt(ctx, buf, 11)
	require.NoError(t, err)
	assert.Equal(t, data[11:21], buf[:n])

	all, err := io.ReadAll(NewReader(ctx, b))
	require.NoError(t, err)
	assert.Equal(t, data, all)

	m, ok := b.(Mappable)
	require.True(t, ok)
	mapped, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, mapped)
	require.NoError(t, b.Close())

	// 3. Put and List
	require.NoError(t, store.Put(ctx, "inbox/a.txt", []byte("a")))
	require.NoError(t, store.Put(ctx, "sent/b.txt", []byte("b")))

	names, err := store.List(ctx, "inbox/")
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox/a.txt", "inbox/report.pdf"}, names)

	// 4. Delete (idempotent)
	require.NoError(t, store.Delete(ctx, "inbox/a.txt"))
	require.NoError(t, store.Delete(ctx, "inbox/a.txt"))
	_, err = store.Open(ctx, "inbox/a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpenFile_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pst")
	require.NoError(t, os.WriteFile(path, []byte("!BDN"), 0o600))

	b, err := OpenFile(path)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.ReadAt(ctx, make([]byte, 4), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
