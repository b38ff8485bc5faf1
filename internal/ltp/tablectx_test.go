package ltp_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	colName     ltp.Tag = 0x3001001F
	colCount    ltp.Tag = 0x36020003
	colFlag     ltp.Tag = 0x360A000B
	colWhen     ltp.Tag = 0x0E060040
	colPriority ltp.Tag = 0x00260002
	colKey      ltp.Tag = 0x300B0048
)

func folderTable(ids ...uint32) *testutil.TableContext {
	tc := testutil.NewTableContext(uint32(colName), uint32(colCount), uint32(colFlag), uint32(colWhen), uint32(colPriority), uint32(colKey))
	for _, id := range ids {
		tc.AddRow(id, map[uint32][]byte{
			uint32(colName):     testutil.Unicode(fmt.Sprintf("row %d", id)),
			uint32(colCount):    testutil.Int32(int32(id * 10)),
			uint32(colFlag):     testutil.Bool(id%2 == 0),
			uint32(colWhen):     testutil.Time(delivered),
			uint32(colPriority): testutil.Int16(int16(-int(id))),
			uint32(colKey):      testutil.GUID(searchKey),
		})
	}
	return tc
}

func TestTableContext(t *testing.T) {
	ctx := context.Background()
	for _, tc := range formats {
		t.Run(tc.name, func(t *testing.T) {
			table := openTC(t, tc.format, folderTable(300, 100, 200))
			assert.Equal(t, 3, table.RowCount())
			assert.Len(t, table.Columns(), 8)

			var ids []uint32
			for row, err := range table.Rows(ctx) {
				require.NoError(t, err)
				ids = append(ids, row.ID)

				v, err := row.Get(ctx, colName)
				require.NoError(t, err)
				s, _ := v.Text()
				assert.Equal(t, fmt.Sprintf("row %d", row.ID), s)

				v, err = row.Get(ctx, colCount)
				require.NoError(t, err)
				n, _ := v.Int()
				assert.Equal(t, int64(row.ID*10), n)

				v, err = row.Get(ctx, colFlag)
				require.NoError(t, err)
				b, _ := v.Bool()
				assert.Equal(t, row.ID%2 == 0, b)

				v, err = row.Get(ctx, colWhen)
				require.NoError(t, err)
				when, _ := v.Time()
				assert.True(t, delivered.Equal(when))

				v, err = row.Get(ctx, colPriority)
				require.NoError(t, err)
				n, _ = v.Int()
				assert.Equal(t, -int64(row.ID), n)

				v, err = row.Get(ctx, colKey)
				require.NoError(t, err)
				id, err := v.GUID()
				require.NoError(t, err)
				assert.Equal(t, searchKey, id)

				v, err = row.Get(ctx, ltp.Tag(0x67F20003))
				require.NoError(t, err)
				n, _ = v.Int()
				assert.Equal(t, int64(row.ID), n)
			}
			assert.Equal(t, []uint32{100, 200, 300}, ids)
		})
	}
}

func TestTableContext_RowByID(t *testing.T) {
	table := openTC(t, ndb.FormatUnicode, folderTable(7, 3, 5))
	ctx := context.Background()

	row, err := table.RowByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), row.ID)

	_, err = table.RowByID(ctx, 4)
	assert.ErrorIs(t, err, ndb.ErrNotFound)

	_, err = row.Get(ctx, 0x0E1F000B)
	assert.ErrorIs(t, err, ndb.ErrNotFound)
}

func TestTableContext_UnsetCells(t *testing.T) {
	for _, fill := range []byte{0x00, 0xAB} {
		src := testutil.NewTableContext(uint32(colName), uint32(colCount), uint32(colFlag))
		src.FillUnset = fill
		src.AddRow(1, map[uint32][]byte{uint32(colCount): testutil.Int32(5)})
		table := openTC(t, ndb.FormatANSI, src)
		ctx := context.Background()

		row, err := table.RowByID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, row.Has(colCount))
		assert.False(t, row.Has(colName))
		assert.False(t, row.Has(colFlag))

		_, err = row.Get(ctx, colName)
		assert.ErrorIs(t, err, ndb.ErrNotFound)
		_, err = row.Get(ctx, colFlag)
		assert.ErrorIs(t, err, ndb.ErrNotFound)

		var tags []ltp.Tag
		for v, err := range row.Values(ctx) {
			require.NoError(t, err)
			tags = append(tags, v.Tag)
		}
		assert.Equal(t, []ltp.Tag{colCount, 0x67F20003, 0x67F30003}, tags)
	}
}

func TestTableContext_SubnodeRows(t *testing.T) {
	ctx := context.Background()
	for _, tc := range formats {
		t.Run(tc.name, func(t *testing.T) {
			ids := make([]uint32, 600)
			for i := range ids {
				ids[i] = uint32(len(ids) - i)
			}
			table := openTC(t, tc.format, folderTable(ids...))
			assert.Equal(t, 600, table.RowCount())

			want := uint32(1)
			for row, err := range table.Rows(ctx) {
				require.NoError(t, err)
				require.Equal(t, want, row.ID)
				v, err := row.Get(ctx, colCount)
				require.NoError(t, err)
				n, _ := v.Int()
				require.Equal(t, int64(want*10), n)
				want++
			}
			assert.Equal(t, uint32(601), want)

			row, err := table.RowByID(ctx, 444)
			require.NoError(t, err)
			v, err := row.Get(ctx, colName)
			require.NoError(t, err)
			s, _ := v.Text()
			assert.Equal(t, "row 444", s)
		})
	}
}

func TestTableContext_ForcedSubnodeAndFanout(t *testing.T) {
	src := folderTable(9, 1, 8, 2, 7, 3, 6, 4, 5)
	src.SubnodeRows = true
	src.BTHFanout = 2
	table := openTC(t, ndb.FormatUnicode, src)

	var ids []uint32
	for row, err := range table.Rows(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, row.ID)
	}
	assert.Equal(t, []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9}, ids)
}

func TestTableContext_DanglingRowMatrix(t *testing.T) {
	src := folderTable(1, 2, 3)
	src.SubnodeRows = true
	b := testutil.NewBuilder(ndb.FormatANSI, ndb.CryptNone)
	enc := src.Encode(b)
	enc.Subnodes = nil

	_, err := ltp.DecodeTableContext(context.Background(), openEncoded(t, b, enc))
	assert.ErrorIs(t, err, ndb.ErrCorrupt)
	assert.NotErrorIs(t, err, ndb.ErrNotFound)
}

func TestTableContext_Empty(t *testing.T) {
	table := openTC(t, ndb.FormatUnicode, testutil.NewTableContext(uint32(colName)))
	assert.Zero(t, table.RowCount())
	for range table.Rows(context.Background()) {
		t.Fatal("unexpected row")
	}
}

func TestTableContext_Repeatable(t *testing.T) {
	table := openTC(t, ndb.FormatUnicode, folderTable(2, 1))
	ctx := context.Background()

	collect := func() []string {
		var out []string
		for row, err := range table.Rows(ctx) {
			require.NoError(t, err)
			for v, err := range row.Values(ctx) {
				require.NoError(t, err)
				out = append(out, v.Tag.String()+"="+v.Format())
			}
		}
		return out
	}
	assert.Equal(t, collect(), collect())
}

func TestTableContext_WrongSignature(t *testing.T) {
	b := testutil.NewBuilder(ndb.FormatUnicode, ndb.CryptNone)
	heap := openEncoded(t, b, testutil.NewPropertyContext().Encode(b))

	_, err := ltp.DecodeTableContext(context.Background(), heap)
	assert.ErrorIs(t, err, ndb.ErrCorrupt)
}
