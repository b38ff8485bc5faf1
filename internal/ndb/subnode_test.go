package ndb_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSubnode(t *testing.T) {
	for _, tc := range formats {
		for _, fanout := range []int{0, 3} {
			t.Run(fmt.Sprintf("%s/fanout=%d", tc.name, fanout), func(t *testing.T) {
				b := testutil.NewBuilder(tc.format, ndb.CryptPermute)
				b.SubnodeFanout = fanout

				var entries []ndb.SubnodeEntry
				for i := 10; i > 0; i-- {
					nid := ndb.MakeNID(ndb.NIDTypeAttachment, uint32(i*2))
					entries = append(entries, ndb.SubnodeEntry{
						NID:     nid,
						DataBID: b.AddBlock([]byte(fmt.Sprintf("attachment %d", i))),
					})
				}
				sub := b.AddSubnodes(entries)
				b.AddNode(ndb.MakeNID(ndb.NIDTypeNormalMessage, 1), b.AddBlock([]byte("msg")), sub, 0)
				db := open(t, b.Build(), verified())
				ctx := context.Background()

				msg, err := db.Node(ctx, ndb.MakeNID(ndb.NIDTypeNormalMessage, 1))
				require.NoError(t, err)
				assert.Equal(t, sub, msg.SubnodeBID)

				for i := 1; i <= 10; i++ {
					n, err := db.SubnodeOf(ctx, msg, ndb.MakeNID(ndb.NIDTypeAttachment, uint32(i*2)))
					require.NoError(t, err)
					data, err := db.ReadNode(ctx, n)
					require.NoError(t, err)
					assert.Equal(t, fmt.Sprintf("attachment %d", i), string(data))
				}

				for _, nid := range []ndb.NID{
					ndb.MakeNID(ndb.NIDTypeAttachment, 1),
					ndb.MakeNID(ndb.NIDTypeAttachment, 7),
					ndb.MakeNID(ndb.NIDTypeAttachment, 100),
				} {
					_, err := db.ResolveSubnode(ctx, sub, nid)
					assert.ErrorIs(t, err, ndb.ErrNotFound)
				}

				all, err := db.Subnodes(ctx, sub)
				require.NoError(t, err)
				require.Len(t, all, 10)
				for i, e := range all {
					assert.Equal(t, ndb.MakeNID(ndb.NIDTypeAttachment, uint32((i+1)*2)), e.NID)
				}
			})
		}
	}
}

func TestResolveSubnode_NoTree(t *testing.T) {
	b := testutil.NewBuilder(ndb.FormatANSI, ndb.CryptNone)
	data := b.AddBlock([]byte("data"))
	img := b.Build()
	db := open(t, img, ndb.Options{})
	ctx := context.Background()

	_, err := db.ResolveSubnode(ctx, 0, ndb.NIDAttachmentTable)
	assert.ErrorIs(t, err, ndb.ErrNotFound)

	all, err := db.Subnodes(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = db.ResolveSubnode(ctx, data, ndb.NIDAttachmentTable)
	assert.ErrorIs(t, err, ndb.ErrCorrupt)
}
