package ltp_test

import (
	"encoding/binary"
	"testing"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBTH(t *testing.T) {
	for _, fanout := range []int{0, 3} {
		b := testutil.NewBuilder(ndb.FormatUnicode, ndb.CryptNone)
		h := testutil.NewHeap(ndb.FormatUnicode, ltp.ClientSigTC)
		h.BTHFanout = fanout

		var records [][]byte
		for _, k := range []uint32{50, 10, 40, 20, 30, 70, 60, 80, 90, 100, 5} {
			r := binary.LittleEndian.AppendUint32(nil, k)
			records = append(records, binary.LittleEndian.AppendUint16(r, uint16(k*2)))
		}
		hid := ltp.HID(h.AddBTH(4, 2, records, false))
		heap := openEncoded(t, b, testutil.Encoded{Blocks: h.Blocks()})

		bth, err := ltp.OpenBTH(heap, hid)
		require.NoError(t, err)
		assert.Equal(t, 4, bth.KeySize())
		assert.Equal(t, 2, bth.DataSize())
		assert.False(t, bth.Empty())

		recs, err := bth.Records()
		require.NoError(t, err)
		require.Len(t, recs, 11)
		prev := uint32(0)
		for _, r := range recs {
			k := binary.LittleEndian.Uint32(r.Key)
			assert.Greater(t, k, prev)
			assert.Equal(t, uint16(k*2), binary.LittleEndian.Uint16(r.Data))
			prev = k
		}

		for _, k := range []uint32{5, 10, 55 - 5, 100} {
			r, err := bth.Lookup(binary.LittleEndian.AppendUint32(nil, k))
			require.NoError(t, err, "key %d", k)
			assert.Equal(t, uint16(k*2), binary.LittleEndian.Uint16(r.Data))
		}
		for _, k := range []uint32{1, 15, 101} {
			_, err := bth.Lookup(binary.LittleEndian.AppendUint32(nil, k))
			assert.ErrorIs(t, err, ndb.ErrNotFound, "key %d", k)
		}
		_, err = bth.Lookup([]byte{1, 2})
		assert.ErrorIs(t, err, ndb.ErrCorrupt)
	}
}

func TestBTH_Empty(t *testing.T) {
	b := testutil.NewBuilder(ndb.FormatANSI, ndb.CryptNone)
	h := testutil.NewHeap(ndb.FormatANSI, ltp.ClientSigPC)
	hid := ltp.HID(h.AddBTH(2, 6, nil, false))
	heap := openEncoded(t, b, testutil.Encoded{Blocks: h.Blocks()})

	bth, err := ltp.OpenBTH(heap, hid)
	require.NoError(t, err)
	assert.True(t, bth.Empty())

	recs, err := bth.Records()
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = bth.Lookup([]byte{1, 0})
	assert.ErrorIs(t, err, ndb.ErrNotFound)
}

func TestBTH_BadHeader(t *testing.T) {
	b := testutil.NewBuilder(ndb.FormatUnicode, ndb.CryptNone)
	h := testutil.NewHeap(ndb.FormatUnicode, ltp.ClientSigPC)
	notBTH := ltp.HID(h.Alloc([]byte{0xB6, 2, 6, 0, 0, 0, 0, 0}))
	badKey := ltp.HID(h.Alloc([]byte{0xB5, 3, 6, 0, 0, 0, 0, 0}))
	deep := ltp.HID(h.Alloc([]byte{0xB5, 2, 6, 200, 0x20, 0, 0, 0}))
	heap := openEncoded(t, b, testutil.Encoded{Blocks: h.Blocks()})

	for _, hid := range []ltp.HID{notBTH, badKey, deep} {
		_, err := ltp.OpenBTH(heap, hid)
		assert.ErrorIs(t, err, ndb.ErrCorrupt)
	}
}
