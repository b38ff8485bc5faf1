package ltp_test

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag(t *testing.T) {
	tag := ltp.MakeTag(0x0037, ltp.TypeUnicode)
	assert.Equal(t, ltp.Tag(0x0037001F), tag)
	assert.Equal(t, uint16(0x0037), tag.ID())
	assert.Equal(t, ltp.TypeUnicode, tag.Type())
	assert.Equal(t, "0x0037001F", tag.String())

	multi := ltp.PropType(0x101F)
	assert.True(t, multi.IsMulti())
	assert.Equal(t, ltp.TypeUnicode, multi.Base())

	size, ok := ltp.TypeTime.FixedSize()
	assert.True(t, ok)
	assert.Equal(t, 8, size)
	_, ok = ltp.TypeBinary.FixedSize()
	assert.False(t, ok)
}

func TestValue_Time(t *testing.T) {
	for _, want := range []time.Time{
		time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC),
		time.Date(1601, 1, 1, 0, 0, 1, 0, time.UTC),
		time.Date(1969, 7, 20, 20, 17, 40, 0, time.UTC),
	} {
		v := ltp.Value{Tag: 0x0E060040, Raw: testutil.Time(want)}
		got, err := v.Time()
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "%s != %s", want, got)
	}

	zero, err := ltp.Value{Tag: 0x0E060040, Raw: make([]byte, 8)}.Time()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	raw := binary.LittleEndian.AppendUint64(nil, math.Float64bits(45000.5))
	got, err := ltp.Value{Tag: 0x80010007, Raw: raw}.Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC), got)
}

func TestValue_Sizes(t *testing.T) {
	_, err := ltp.Value{Tag: 0x00170003, Raw: []byte{1, 2}}.Int()
	assert.ErrorIs(t, err, ndb.ErrCorrupt)

	_, err = ltp.Value{Tag: 0x0E060040, Raw: []byte{1}}.Time()
	assert.ErrorIs(t, err, ndb.ErrCorrupt)

	_, err = ltp.Value{Tag: 0x300B0048, Raw: make([]byte, 15)}.GUID()
	assert.ErrorIs(t, err, ndb.ErrCorrupt)

	_, err = ltp.Value{Tag: 0x0037001F}.Bool()
	assert.ErrorIs(t, err, ltp.ErrType)
}

func TestValue_Currency(t *testing.T) {
	v := ltp.Value{Tag: 0x80030006, Raw: testutil.Int64(123456)}
	f, err := v.Float()
	require.NoError(t, err)
	assert.InDelta(t, 12.3456, f, 1e-9)
}

func TestValue_Multi(t *testing.T) {
	v := ltp.Value{Tag: 0x80041003, Raw: testutil.MultiInt32(1, -2, 3)}
	elems, err := v.Elements()
	require.NoError(t, err)
	require.Len(t, elems, 3)
	n, _ := elems[1].Int()
	assert.Equal(t, int64(-2), n)
	assert.Equal(t, "[1; -2; 3]", v.Format())

	v = ltp.Value{Tag: 0x80051102, Raw: testutil.MultiBinary([]byte{1}, nil, []byte{2, 3})}
	elems, err = v.Elements()
	require.NoError(t, err)
	require.Len(t, elems, 3)
	assert.Empty(t, elems[1].Raw)
	assert.Equal(t, []byte{2, 3}, elems[2].Raw)

	bad := testutil.MultiUnicode("a", "b")
	binary.LittleEndian.PutUint32(bad[8:], 100)
	_, err = ltp.Value{Tag: 0x8001101F, Raw: bad}.Strings()
	assert.ErrorIs(t, err, ndb.ErrCorrupt)

	_, err = ltp.Value{Tag: 0x8001101F, Raw: []byte{9, 0, 0, 0}}.Strings()
	assert.ErrorIs(t, err, ndb.ErrCorrupt)

	_, err = ltp.Value{Tag: 0x0037001F}.Elements()
	assert.ErrorIs(t, err, ltp.ErrType)
}

func TestValue_Format(t *testing.T) {
	assert.Equal(t, "{6BA7B810-9DAD-11D1-80B4-00C04FD430C8}", ltp.Value{Tag: 0x300B0048, Raw: testutil.GUID(searchKey)}.Format())
	assert.Equal(t, "true", ltp.Value{Tag: 0x0E1B000B, Raw: testutil.Bool(true)}.Format())
	assert.Equal(t, "0102ff", ltp.Value{Tag: 0x0FFF0102, Raw: []byte{1, 2, 0xFF}}.Format())
	assert.Equal(t, "2024-05-17T09:30:00Z", ltp.Value{Tag: 0x0E060040, Raw: testutil.Time(delivered)}.Format())
}

func TestDecodeString8(t *testing.T) {
	assert.Equal(t, "café", ltp.DecodeString8([]byte{'c', 'a', 'f', 0xE9, 0}, 1252))
	assert.Equal(t, "Привет", ltp.DecodeString8([]byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2}, 1251))
	assert.Equal(t, "café", ltp.DecodeString8([]byte{'c', 'a', 'f', 0xE9}, 99999))
	assert.Equal(t, "hi", ltp.DecodeUnicode([]byte{'h', 0, 'i', 0, 0, 0}))

	_, err := ltp.CodePageEncoding(99999)
	assert.Error(t, err)
}
