package testutil

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/hupe1980/pstgo/internal/ndb"
)

// MaxHeapAlloc is the largest heap allocation; larger values go to subnodes.
const MaxHeapAlloc = 3580

const (
	clientSigPC = 0xBC
	clientSigTC = 0x7C
	bthType     = 0xB5

	tagRowID  = 0x67F20003
	tagRowVer = 0x67F30003
)

// Heap builds a heap-on-node.
type Heap struct {
	ClientSig byte
	UserRoot  uint32
	// BTHFanout caps the records per BTH allocation. Zero means no cap.
	BTHFanout int

	max    int
	blocks [][][]byte
}

// NewHeap returns an empty heap for blocks of format f.
func NewHeap(f ndb.Format, clientSig byte) *Heap {
	return &Heap{ClientSig: clientSig, max: f.MaxBlockPayload(), blocks: [][][]byte{nil}}
}

func heapHeaderSize(block int) int {
	switch {
	case block == 0:
		return 12
	case block >= 8 && (block-8)%128 == 0:
		return 66
	default:
		return 2
	}
}

func (h *Heap) used(block int, extra int, allocs int) int {
	n := heapHeaderSize(block)
	for _, a := range h.blocks[block] {
		n += len(a)
	}
	n += extra
	n += n & 1
	return n + 4 + 2*(allocs+1)
}

// Alloc stores data and returns its HID.
func (h *Heap) Alloc(data []byte) uint32 {
	if len(data) > MaxHeapAlloc {
		panic(fmt.Sprintf("testutil: heap allocation of %d bytes", len(data)))
	}
	last := len(h.blocks) - 1
	if h.used(last, len(data), len(h.blocks[last])+1) > h.max || len(h.blocks[last]) >= 2047 {
		h.blocks = append(h.blocks, nil)
		last++
	}
	h.blocks[last] = append(h.blocks[last], append([]byte(nil), data...))
	return uint32(last)<<16 | uint32(len(h.blocks[last]))<<5
}

// Blocks serializes the heap, one slice per data block.
func (h *Heap) Blocks() [][]byte {
	out := make([][]byte, len(h.blocks))
	for i, allocs := range h.blocks {
		buf := make([]byte, heapHeaderSize(i))
		offsets := make([]uint16, 0, len(allocs)+1)
		for _, a := range allocs {
			offsets = append(offsets, uint16(len(buf)))
			buf = append(buf, a...)
		}
		offsets = append(offsets, uint16(len(buf)))
		if len(buf)%2 == 1 {
			buf = append(buf, 0)
		}

		hnpm := len(buf)
		binary.LittleEndian.PutUint16(buf[0:], uint16(hnpm))
		if i == 0 {
			buf[2] = 0xEC
			buf[3] = h.ClientSig
			binary.LittleEndian.PutUint32(buf[4:], h.UserRoot)
		}

		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(allocs)))
		buf = binary.LittleEndian.AppendUint16(buf, 0)
		for _, o := range offsets {
			buf = binary.LittleEndian.AppendUint16(buf, o)
		}
		out[i] = buf
	}
	return out
}

// leKey decodes a little-endian key of up to 8 bytes.
func leKey(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// AddBTH stores a B-tree on heap over records of cbKey+cbEnt bytes and
// returns the HID of its header. Records are sorted unless unsorted is set.
func (h *Heap) AddBTH(cbKey, cbEnt int, records [][]byte, unsorted bool) uint32 {
	recs := append([][]byte(nil), records...)
	if !unsorted {
		sort.SliceStable(recs, func(i, j int) bool {
			return leKey(recs[i][:cbKey]) < leKey(recs[j][:cbKey])
		})
	}

	hdr := make([]byte, 8)
	hdr[0] = bthType
	hdr[1] = byte(cbKey)
	hdr[2] = byte(cbEnt)
	if len(recs) == 0 {
		return h.Alloc(hdr)
	}

	type node struct {
		key []byte
		hid uint32
	}
	level := 0
	size := cbKey + cbEnt
	var nodes []node
	for {
		fanout := MaxHeapAlloc / size
		if h.BTHFanout > 0 {
			fanout = min(fanout, h.BTHFanout)
		}
		nodes = nodes[:0:0]
		for start := 0; start < len(recs); start += fanout {
			end := min(start+fanout, len(recs))
			var alloc []byte
			for _, r := range recs[start:end] {
				alloc = append(alloc, r...)
			}
			nodes = append(nodes, node{key: recs[start][:cbKey], hid: h.Alloc(alloc)})
		}
		if len(nodes) == 1 {
			break
		}
		recs = recs[:0:0]
		for _, n := range nodes {
			r := append(append([]byte(nil), n.key...), binary.LittleEndian.AppendUint32(nil, n.hid)...)
			recs = append(recs, r)
		}
		size = cbKey + 4
		level++
	}

	hdr[3] = byte(level)
	binary.LittleEndian.PutUint32(hdr[4:], nodes[0].hid)
	return h.Alloc(hdr)
}

// Encoded is an LTP structure ready to be stored as a node.
type Encoded struct {
	Blocks   [][]byte
	Subnodes []ndb.SubnodeEntry
}

// Store writes the heap blocks and the subnode tree, including extra
// subnodes, and returns the data and subnode BIDs.
func (e Encoded) Store(b *Builder, extra ...ndb.SubnodeEntry) (data, sub ndb.BID) {
	data = b.AddDataBlocks(e.Blocks)
	sub = b.AddSubnodes(append(append([]ndb.SubnodeEntry(nil), e.Subnodes...), extra...))
	return data, sub
}

// LocalNID allocates a NID of type t that is unique within the builder.
func (b *Builder) LocalNID(t ndb.NIDType) ndb.NID {
	b.local++
	return ndb.MakeNID(t, 0x400+b.local)
}

// hnid stores a variable value in the heap or, when too large, in a new
// subnode. Empty values are stored as HNID 0.
func hnid(b *Builder, h *Heap, v []byte, subs *[]ndb.SubnodeEntry, forceSubnode bool) uint32 {
	if len(v) == 0 {
		return 0
	}
	if len(v) <= MaxHeapAlloc && !forceSubnode {
		return h.Alloc(v)
	}
	nid := b.LocalNID(ndb.NIDTypeLTP)
	*subs = append(*subs, ndb.SubnodeEntry{NID: nid, DataBID: b.AddData(v)})
	return uint32(nid)
}

// Prop is one property: a tag and its value in stored encoding.
type Prop struct {
	Tag   uint32
	Value []byte
}

// PropertyContext encodes a property context.
type PropertyContext struct {
	Props []Prop
	// Unsorted writes descriptors in insertion order.
	Unsorted bool
	// Subnode forces these tags into subnodes.
	Subnode map[uint32]bool
	// BTHFanout caps the descriptors per BTH allocation.
	BTHFanout int
}

// NewPropertyContext returns an empty property context.
func NewPropertyContext() *PropertyContext {
	return &PropertyContext{Subnode: make(map[uint32]bool)}
}

// Add appends a property.
func (pc *PropertyContext) Add(tag uint32, v []byte) *PropertyContext {
	pc.Props = append(pc.Props, Prop{Tag: tag, Value: v})
	return pc
}

// Encode lays out the heap, storing large values in subnodes of b.
func (pc *PropertyContext) Encode(b *Builder) Encoded {
	h := NewHeap(b.Format, clientSigPC)
	h.BTHFanout = pc.BTHFanout
	var subs []ndb.SubnodeEntry

	records := make([][]byte, 0, len(pc.Props))
	for _, p := range pc.Props {
		ptype := uint16(p.Tag)
		var payload uint32
		if inlinePC(ptype) {
			var buf [4]byte
			copy(buf[:], p.Value)
			payload = binary.LittleEndian.Uint32(buf[:])
		} else {
			payload = hnid(b, h, p.Value, &subs, pc.Subnode[p.Tag])
		}
		r := binary.LittleEndian.AppendUint16(nil, uint16(p.Tag>>16))
		r = binary.LittleEndian.AppendUint16(r, ptype)
		r = binary.LittleEndian.AppendUint32(r, payload)
		records = append(records, r)
	}

	h.UserRoot = h.AddBTH(2, 6, records, pc.Unsorted)
	return Encoded{Blocks: h.Blocks(), Subnodes: subs}
}

// Row is one table row.
type Row struct {
	ID     uint32
	Values map[uint32][]byte
}

// TableContext encodes a table context.
type TableContext struct {
	Columns []uint32
	Rows    []Row
	// SubnodeRows stores the row matrix in a subnode.
	SubnodeRows bool
	// FillUnset writes this byte into cells whose value is absent.
	FillUnset byte
	// BTHFanout caps the row index records per BTH allocation.
	BTHFanout int
}

// NewTableContext returns a table with the given columns. Row id and row
// version columns are always present.
func NewTableContext(tags ...uint32) *TableContext {
	return &TableContext{Columns: tags}
}

// AddRow appends a row.
func (tc *TableContext) AddRow(id uint32, values map[uint32][]byte) *TableContext {
	tc.Rows = append(tc.Rows, Row{ID: id, Values: values})
	return tc
}

type colDesc struct {
	tag  uint32
	ib   int
	cb   int
	iBit int
}

func (tc *TableContext) layout() ([]colDesc, [4]int) {
	cols := []colDesc{{tag: tagRowID, cb: 4, iBit: 0}, {tag: tagRowVer, cb: 4, iBit: 1}}
	for _, tag := range tc.Columns {
		if tag == tagRowID || tag == tagRowVer {
			continue
		}
		cols = append(cols, colDesc{tag: tag, cb: cellSize(uint16(tag)), iBit: len(cols)})
	}

	var rgib [4]int
	off := 8
	for _, group := range []int{8, 4, 2, 1} {
		for i := range cols[2:] {
			c := &cols[2+i]
			if c.cb == group {
				c.ib = off
				off += c.cb
			}
		}
		switch group {
		case 4:
			rgib[0] = off
		case 2:
			rgib[1] = off
		case 1:
			rgib[2] = off
		}
	}
	cols[0].ib, cols[1].ib = 0, 4
	rgib[3] = rgib[2] + (len(cols)+7)/8
	return cols, rgib
}

// Encode lays out the heap, the row index and the row matrix.
func (tc *TableContext) Encode(b *Builder) Encoded {
	f := b.Format
	h := NewHeap(f, clientSigTC)
	h.BTHFanout = tc.BTHFanout
	var subs []ndb.SubnodeEntry

	cols, rgib := tc.layout()
	rowSize := rgib[3]

	matrix := make([]byte, 0, rowSize*len(tc.Rows))
	index := make([][]byte, 0, len(tc.Rows))
	for i, r := range tc.Rows {
		row := make([]byte, rowSize)
		for _, c := range cols {
			cell := row[c.ib : c.ib+c.cb]
			var v []byte
			var ok bool
			switch c.tag {
			case tagRowID:
				v, ok = Int32(int32(r.ID)), true
			case tagRowVer:
				v, ok = Int32(1), true
			default:
				v, ok = r.Values[c.tag]
			}
			if !ok {
				for j := range cell {
					cell[j] = tc.FillUnset
				}
				continue
			}
			row[rgib[2]+c.iBit/8] |= 1 << (7 - c.iBit%8)
			if c.cb == 4 && !inlinePC(uint16(c.tag)) {
				binary.LittleEndian.PutUint32(cell, hnid(b, h, v, &subs, false))
				continue
			}
			copy(cell, v)
		}
		matrix = append(matrix, row...)

		rec := binary.LittleEndian.AppendUint32(nil, r.ID)
		if f.IsUnicode() {
			rec = binary.LittleEndian.AppendUint32(rec, uint32(i))
		} else {
			rec = binary.LittleEndian.AppendUint16(rec, uint16(i))
		}
		index = append(index, rec)
	}

	cbEnt := 2
	if f.IsUnicode() {
		cbEnt = 4
	}
	hidRowIndex := h.AddBTH(4, cbEnt, index, false)

	var rows uint32
	switch {
	case len(matrix) == 0:
	case tc.SubnodeRows || len(matrix) > MaxHeapAlloc:
		perBlock := f.MaxBlockPayload() / rowSize
		var chunks [][]byte
		for start := 0; start < len(tc.Rows); start += perBlock {
			end := min(start+perBlock, len(tc.Rows))
			chunks = append(chunks, matrix[start*rowSize:end*rowSize])
		}
		nid := b.LocalNID(ndb.NIDTypeLTP)
		subs = append(subs, ndb.SubnodeEntry{NID: nid, DataBID: b.AddDataBlocks(chunks)})
		rows = uint32(nid)
	default:
		rows = h.Alloc(matrix)
	}

	sorted := append([]colDesc(nil), cols...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].tag < sorted[j].tag })

	info := []byte{clientSigTC, byte(len(cols))}
	for _, v := range rgib {
		info = binary.LittleEndian.AppendUint16(info, uint16(v))
	}
	info = binary.LittleEndian.AppendUint32(info, hidRowIndex)
	info = binary.LittleEndian.AppendUint32(info, rows)
	info = binary.LittleEndian.AppendUint32(info, 0)
	for _, c := range sorted {
		info = binary.LittleEndian.AppendUint32(info, c.tag)
		info = binary.LittleEndian.AppendUint16(info, uint16(c.ib))
		info = append(info, byte(c.cb), byte(c.iBit))
	}

	h.UserRoot = h.Alloc(info)
	return Encoded{Blocks: h.Blocks(), Subnodes: subs}
}
