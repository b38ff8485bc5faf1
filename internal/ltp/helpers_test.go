package ltp_test

import (
	"context"
	"testing"

	"github.com/hupe1980/pstgo/internal/ltp"
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

var testNID = ndb.MakeNID(ndb.NIDTypeNormalMessage, 1)

// openEncoded stores enc as a top-level node and opens its heap.
func openEncoded(t *testing.T, b *testutil.Builder, enc testutil.Encoded) *ltp.Heap {
	t.Helper()
	data, sub := enc.Store(b)
	b.AddNode(testNID, data, sub, 0)
	img := b.Build()

	ctx := context.Background()
	db, err := ndb.Open(ctx, img.Blob(), ndb.Options{VerifyChecksums: true})
	require.NoError(t, err)
	node, err := db.Node(ctx, testNID)
	require.NoError(t, err)
	heap, err := ltp.OpenHeap(ctx, db, node)
	require.NoError(t, err)
	return heap
}

func openPC(t *testing.T, f ndb.Format, pc *testutil.PropertyContext, opts ...ltp.Option) *ltp.PropertyContext {
	t.Helper()
	b := testutil.NewBuilder(f, ndb.CryptPermute)
	heap := openEncoded(t, b, pc.Encode(b))
	dec, err := ltp.DecodePropertyContext(context.Background(), heap, opts...)
	require.NoError(t, err)
	return dec
}

func openTC(t *testing.T, f ndb.Format, tc *testutil.TableContext) *ltp.TableContext {
	t.Helper()
	b := testutil.NewBuilder(f, ndb.CryptCyclic)
	heap := openEncoded(t, b, tc.Encode(b))
	dec, err := ltp.DecodeTableContext(context.Background(), heap)
	require.NoError(t, err)
	return dec
}
