package ltp_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_RoundTrip(t *testing.T) {
	rng := testutil.NewRNG(3)

	for _, tc := range formats {
		t.Run(tc.name, func(t *testing.T) {
			b := testutil.NewBuilder(tc.format, ndb.CryptNone)
			h := testutil.NewHeap(tc.format, ltp.ClientSigPC)

			var want [][]byte
			var hids []ltp.HID
			for i := range 60 {
				size := 2000 + rng.Intn(testutil.MaxHeapAlloc-2000)
				if i%5 == 0 {
					size = 0
				}
				data := rng.Bytes(size)
				want = append(want, data)
				hids = append(hids, ltp.HID(h.Alloc(data)))
			}
			h.UserRoot = uint32(hids[0])
			blocks := h.Blocks()
			if !tc.format.Is4K() {
				require.Greater(t, len(blocks), 8, "exercise a bitmap page")
			}

			heap := openEncoded(t, b, testutil.Encoded{Blocks: blocks})
			assert.Equal(t, byte(ltp.ClientSigPC), heap.ClientSig())
			assert.Equal(t, hids[0], heap.UserRoot())

			for i, hid := range hids {
				got, err := heap.Get(hid)
				require.NoError(t, err)
				assert.Equal(t, len(want[i]), len(got))
				if len(want[i]) > 0 {
					assert.Equal(t, want[i], got)
				}
			}
		})
	}
}

func TestHeap_Errors(t *testing.T) {
	b := testutil.NewBuilder(ndb.FormatUnicode, ndb.CryptNone)
	h := testutil.NewHeap(ndb.FormatUnicode, ltp.ClientSigPC)
	hid := ltp.HID(h.Alloc([]byte("only")))
	heap := openEncoded(t, b, testutil.Encoded{Blocks: h.Blocks()})

	_, err := heap.Get(0)
	assert.ErrorIs(t, err, ndb.ErrNotFound)

	for name, bad := range map[string]ltp.HID{
		"index past count": hid + 1<<5,
		"second block":     0x1<<16 | 1<<5,
		"block past end":   hid | 3<<16,
		"type bits":        hid | 0x1,
	} {
		_, err := heap.Get(bad)
		assert.ErrorIs(t, err, ndb.ErrCorrupt, name)
	}

	data, err := heap.ReadHNID(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = heap.ReadHNID(context.Background(), ltp.HNID(ndb.MakeNID(ndb.NIDTypeLTP, 9)))
	assert.ErrorIs(t, err, ndb.ErrCorrupt)
	assert.NotErrorIs(t, err, ndb.ErrNotFound)
}

func TestHeap_NonMonotonicPageMap(t *testing.T) {
	b := testutil.NewBuilder(ndb.FormatANSI, ndb.CryptNone)
	h := testutil.NewHeap(ndb.FormatANSI, ltp.ClientSigPC)
	h.Alloc([]byte("first"))
	hid := ltp.HID(h.Alloc([]byte("second")))
	blocks := h.Blocks()

	block := blocks[0]
	hnpm := int(binary.LittleEndian.Uint16(block))
	// Move the end of the first allocation past the end of the second.
	binary.LittleEndian.PutUint16(block[hnpm+6:], uint16(hnpm))

	heap := openEncoded(t, b, testutil.Encoded{Blocks: blocks})
	_, err := heap.Get(hid)
	assert.ErrorIs(t, err, ndb.ErrCorrupt)
}

func TestHeap_BadSignature(t *testing.T) {
	b := testutil.NewBuilder(ndb.FormatUnicode, ndb.CryptNone)
	h := testutil.NewHeap(ndb.FormatUnicode, ltp.ClientSigPC)
	h.Alloc([]byte("x"))
	blocks := h.Blocks()
	blocks[0][2] = 0x00

	data, sub := testutil.Encoded{Blocks: blocks}.Store(b)
	b.AddNode(testNID, data, sub, 0)
	ctx := context.Background()
	db, err := ndb.Open(ctx, b.Build().Blob(), ndb.Options{})
	require.NoError(t, err)
	node, err := db.Node(ctx, testNID)
	require.NoError(t, err)

	_, err = ltp.OpenHeap(ctx, db, node)
	assert.ErrorIs(t, err, ndb.ErrCorrupt)
}
