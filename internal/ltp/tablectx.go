package ltp

import (
	"context"
	"encoding/binary"
	"iter"
	"sort"

	"github.com/hupe1980/pstgo/internal/ndb"
)

const (
	tcInfoSize    = 22
	tcColDescSize = 8
)

// Column describes one table column.
type Column struct {
	Tag    Tag
	Offset uint16
	Size   uint8
	Bit    uint8
}

type rowRef struct {
	id    uint32
	index uint32
}

// TableContext is a decoded table context.
type TableContext struct {
	heap     *Heap
	columns  []Column
	rgib     [4]uint16
	rowSize  int
	index    []rowRef
	matrix   [][]byte
	perBlock int
	codePage int
}

// DecodeTableContext decodes the TCINFO, row index and row matrix of heap.
func DecodeTableContext(ctx context.Context, heap *Heap, opts ...Option) (*TableContext, error) {
	o := applyOptions(opts)
	nid := heap.Node().NID
	if heap.ClientSig() != ClientSigTC {
		return nil, corruptf("heap of %s: client signature %#x is not a table context", nid, heap.ClientSig())
	}
	info, err := heap.Get(heap.UserRoot())
	if err != nil {
		return nil, err
	}
	if len(info) < tcInfoSize || info[0] != ClientSigTC {
		return nil, corruptf("table context of %s: bad TCINFO", nid)
	}

	cols := int(info[1])
	if len(info) < tcInfoSize+cols*tcColDescSize {
		return nil, corruptf("table context of %s: %d columns in %d bytes", nid, cols, len(info))
	}
	tc := &TableContext{heap: heap, codePage: o.codePage}
	for i := range tc.rgib {
		tc.rgib[i] = binary.LittleEndian.Uint16(info[2+2*i:])
	}
	if tc.rgib[0] > tc.rgib[1] || tc.rgib[1] > tc.rgib[2] || tc.rgib[2] > tc.rgib[3] {
		return nil, corruptf("table context of %s: group offsets %v out of order", nid, tc.rgib)
	}
	tc.rowSize = int(tc.rgib[3])
	bitmapBits := 8 * int(tc.rgib[3]-tc.rgib[2])

	tc.columns = make([]Column, cols)
	for i := range tc.columns {
		d := info[tcInfoSize+i*tcColDescSize:]
		c := Column{
			Tag:    Tag(binary.LittleEndian.Uint32(d)),
			Offset: binary.LittleEndian.Uint16(d[4:]),
			Size:   d[6],
			Bit:    d[7],
		}
		if int(c.Offset)+int(c.Size) > int(tc.rgib[2]) || int(c.Bit) >= bitmapBits {
			return nil, corruptf("table context of %s: column %s outside the row", nid, c.Tag)
		}
		tc.columns[i] = c
	}
	sort.Slice(tc.columns, func(i, j int) bool { return tc.columns[i].Tag < tc.columns[j].Tag })

	hidRowIndex := HID(binary.LittleEndian.Uint32(info[10:]))
	hnidRows := HNID(binary.LittleEndian.Uint32(info[14:]))

	if err := tc.readIndex(hidRowIndex); err != nil {
		return nil, err
	}
	if err := tc.readMatrix(ctx, hnidRows); err != nil {
		return nil, err
	}
	return tc, nil
}

func (tc *TableContext) readIndex(hid HID) error {
	if hid == 0 {
		return nil
	}
	bth, err := OpenBTH(tc.heap, hid)
	if err != nil {
		return err
	}
	if bth.KeySize() != 4 || (bth.DataSize() != 2 && bth.DataSize() != 4) {
		return corruptf("row index of %s: record %d+%d bytes", tc.heap.Node().NID, bth.KeySize(), bth.DataSize())
	}
	records, err := bth.Records()
	if err != nil {
		return err
	}

	tc.index = make([]rowRef, len(records))
	for i, r := range records {
		ref := rowRef{id: binary.LittleEndian.Uint32(r.Key)}
		if len(r.Data) == 4 {
			ref.index = binary.LittleEndian.Uint32(r.Data)
		} else {
			ref.index = uint32(binary.LittleEndian.Uint16(r.Data))
		}
		tc.index[i] = ref
	}
	sort.SliceStable(tc.index, func(i, j int) bool { return tc.index[i].id < tc.index[j].id })
	return nil
}

func (tc *TableContext) readMatrix(ctx context.Context, hnid HNID) error {
	if hnid == 0 {
		return nil
	}
	if tc.rowSize == 0 {
		return corruptf("table context of %s: rows of zero size", tc.heap.Node().NID)
	}
	if hnid.IsHID() {
		data, err := tc.heap.Get(HID(hnid))
		if err != nil {
			return err
		}
		tc.matrix = [][]byte{data}
		tc.perBlock = len(data) / tc.rowSize
		return nil
	}

	db := tc.heap.Database()
	sub, err := db.SubnodeOf(ctx, tc.heap.Node(), ndb.NID(hnid))
	if err != nil {
		return ndb.Dangling(err, "row matrix of %s", tc.heap.Node().NID)
	}
	blocks, err := db.NodeBlocks(ctx, sub)
	if err != nil {
		return err
	}
	tc.matrix = blocks
	tc.perBlock = db.Format().MaxBlockPayload() / tc.rowSize
	if tc.perBlock == 0 {
		return corruptf("table context of %s: row size %d exceeds a block", tc.heap.Node().NID, tc.rowSize)
	}
	return nil
}

// RowCount returns the number of row index entries.
func (tc *TableContext) RowCount() int { return len(tc.index) }

// Columns returns the schema in tag order.
func (tc *TableContext) Columns() []Column { return tc.columns }

// RowSize returns the size of one row in the matrix.
func (tc *TableContext) RowSize() int { return tc.rowSize }

// Rows iterates the rows in ascending row id order. A row that fails to
// decode yields its error and iteration continues.
func (tc *TableContext) Rows(ctx context.Context) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		for _, ref := range tc.index {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(tc.row(ref)) {
				return
			}
		}
	}
}

// RowByID returns the row with the given id.
func (tc *TableContext) RowByID(_ context.Context, id uint32) (*Row, error) {
	i := sort.Search(len(tc.index), func(i int) bool { return tc.index[i].id >= id })
	if i == len(tc.index) || tc.index[i].id != id {
		return nil, notFoundf("row %d", id)
	}
	return tc.row(tc.index[i])
}

func (tc *TableContext) row(ref rowRef) (*Row, error) {
	if tc.perBlock == 0 || len(tc.matrix) == 0 {
		return nil, corruptf("row %d: table has no row matrix", ref.id)
	}
	block := int(ref.index) / tc.perBlock
	off := (int(ref.index) % tc.perBlock) * tc.rowSize
	if block >= len(tc.matrix) || off+tc.rowSize > len(tc.matrix[block]) {
		return nil, corruptf("row %d: index %d outside the row matrix", ref.id, ref.index)
	}
	return &Row{tc: tc, ID: ref.id, data: tc.matrix[block][off : off+tc.rowSize]}, nil
}

func (tc *TableContext) column(tag Tag) (Column, bool) {
	i := sort.Search(len(tc.columns), func(i int) bool { return tc.columns[i].Tag >= tag })
	if i < len(tc.columns) && tc.columns[i].Tag == tag {
		return tc.columns[i], true
	}
	for _, c := range tc.columns {
		if c.Tag.ID() == tag.ID() {
			return c, true
		}
	}
	return Column{}, false
}

// Row is one table row.
type Row struct {
	tc   *TableContext
	ID   uint32
	data []byte
}

// Has reports whether the cell of tag is populated.
func (r *Row) Has(tag Tag) bool {
	c, ok := r.tc.column(tag)
	return ok && r.exists(c)
}

func (r *Row) exists(c Column) bool {
	b := r.data[int(r.tc.rgib[2])+int(c.Bit)/8]
	return b&(1<<(7-c.Bit%8)) != 0
}

// Get returns the cell of tag. A cell whose existence bit is unset is
// absent whatever its bytes hold.
func (r *Row) Get(ctx context.Context, tag Tag) (Value, error) {
	c, ok := r.tc.column(tag)
	if !ok {
		return Value{}, notFoundf("column %s", tag)
	}
	return r.decode(ctx, c)
}

func (r *Row) decode(ctx context.Context, c Column) (Value, error) {
	if !r.exists(c) {
		return Value{}, notFoundf("row %d: column %s unset", r.ID, c.Tag)
	}
	cell := r.data[c.Offset : int(c.Offset)+int(c.Size)]
	v := Value{Tag: c.Tag, CodePage: r.tc.codePage}

	if size, ok := c.Tag.Type().FixedSize(); ok && size <= 8 {
		if int(c.Size) != size {
			return Value{}, corruptf("row %d: column %s of %d bytes, want %d", r.ID, c.Tag, c.Size, size)
		}
		v.Raw = cell
		return v, nil
	}

	if c.Size != 4 {
		return Value{}, corruptf("row %d: column %s of %d bytes, want an hnid", r.ID, c.Tag, c.Size)
	}
	data, err := r.tc.heap.ReadHNID(ctx, HNID(binary.LittleEndian.Uint32(cell)))
	if err != nil {
		return Value{}, err
	}
	if size, ok := c.Tag.Type().FixedSize(); ok && len(data) != size {
		return Value{}, corruptf("row %d: column %s holds %d bytes, want %d", r.ID, c.Tag, len(data), size)
	}
	v.Raw = data
	return v, nil
}

// Values decodes every populated cell in tag order. A cell that fails to
// decode yields its error and iteration continues.
func (r *Row) Values(ctx context.Context) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		for _, c := range r.tc.columns {
			if !r.exists(c) {
				continue
			}
			v, err := r.decode(ctx, c)
			if err != nil {
				v = Value{Tag: c.Tag}
			}
			if !yield(v, err) {
				return
			}
		}
	}
}
