package pstgo_test

import (
	"context"
	"testing"

	"github.com/hupe1980/pstgo"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/require"
)

var formats = []struct {
	name   string
	format ndb.Format
}{
	{"ansi", ndb.FormatANSI},
	{"unicode", ndb.FormatUnicode},
	{"unicode4k", ndb.FormatUnicode4K},
}

var crypts = []ndb.CryptMethod{ndb.CryptNone, ndb.CryptPermute, ndb.CryptCyclic}

// openMailbox builds m and opens it from memory.
func openMailbox(t *testing.T, m *testutil.Mailbox, f ndb.Format, crypt ndb.CryptMethod, opts ...pstgo.Option) *pstgo.File {
	t.Helper()
	img := m.Build(f, crypt)
	file, err := pstgo.Open(context.Background(), pstgo.Bytes(img.Data), append([]pstgo.Option{pstgo.WithVerifyChecksums(true)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })
	return file
}

// collect drains a sequence, failing on the first error.
func collect[T any](t *testing.T, seq func(func(*T, error) bool)) []*T {
	t.Helper()
	var out []*T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

// inbox returns the first subfolder of the root.
func inbox(t *testing.T, f *pstgo.File) *pstgo.Folder {
	t.Helper()
	ctx := context.Background()
	root, err := f.RootFolder(ctx)
	require.NoError(t, err)
	subs := collect(t, root.Folders(ctx))
	require.NotEmpty(t, subs)
	return subs[0]
}

// firstMessage returns the first message of the inbox.
func firstMessage(t *testing.T, f *pstgo.File) *pstgo.Message {
	t.Helper()
	msgs := collect(t, inbox(t, f).Messages(context.Background()))
	require.NotEmpty(t, msgs)
	return msgs[0]
}
