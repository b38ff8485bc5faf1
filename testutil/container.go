package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/internal/hash"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/klauspost/compress/zlib"
)

// firstBlockOffset leaves room for the header and is aligned for all formats.
const firstBlockOffset = 4096

type blockRec struct {
	bid  ndb.BID
	data []byte
}

// Builder assembles a node database. Fields may be changed before Build.
type Builder struct {
	Format ndb.Format
	Crypt  ndb.CryptMethod
	Client ndb.Client
	// Compress zlib-compresses external blocks of the 4K format.
	Compress bool
	// SkipChecksums leaves page and block CRCs and signatures zero.
	SkipChecksums bool
	// PageFanout caps the entries per B-tree page. Zero means page capacity.
	PageFanout int
	// XBlockFanout caps the entries per XBLOCK. Zero means block capacity.
	XBlockFanout int
	// SubnodeFanout caps the entries per SLBLOCK. Zero means block capacity.
	SubnodeFanout int

	next   uint64
	local  uint32
	blocks []blockRec
	nodes  map[ndb.NID]ndb.NodeEntry
}

// NewBuilder returns a builder for a PST file of format f.
func NewBuilder(f ndb.Format, crypt ndb.CryptMethod) *Builder {
	return &Builder{
		Format: f,
		Crypt:  crypt,
		Client: ndb.ClientPST,
		next:   1,
		nodes:  make(map[ndb.NID]ndb.NodeEntry),
	}
}

func (b *Builder) nextBID(internal bool) ndb.BID {
	bid := ndb.BID(b.next << 2)
	b.next++
	if internal {
		bid |= 0x2
	}
	return bid
}

// AddBlock stores one external data block.
func (b *Builder) AddBlock(data []byte) ndb.BID {
	if len(data) > b.Format.MaxBlockPayload() {
		panic(fmt.Sprintf("testutil: block of %d bytes exceeds %d", len(data), b.Format.MaxBlockPayload()))
	}
	bid := b.nextBID(false)
	b.blocks = append(b.blocks, blockRec{bid: bid, data: bytes.Clone(data)})
	return bid
}

// AddInternalBlock stores raw structure bytes as an internal block.
func (b *Builder) AddInternalBlock(data []byte) ndb.BID {
	bid := b.nextBID(true)
	b.blocks = append(b.blocks, blockRec{bid: bid, data: bytes.Clone(data)})
	return bid
}

// AddData stores data in as many blocks as needed.
func (b *Builder) AddData(data []byte) ndb.BID {
	max := b.Format.MaxBlockPayload()
	if len(data) <= max {
		return b.AddBlock(data)
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := min(max, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return b.AddDataBlocks(chunks)
}

// AddDataBlocks stores each chunk as one data block and links them with
// an XBLOCK, or an XXBLOCK when one XBLOCK cannot hold all of them.
func (b *Builder) AddDataBlocks(chunks [][]byte) ndb.BID {
	if len(chunks) == 1 {
		return b.AddBlock(chunks[0])
	}

	type leaf struct {
		bid ndb.BID
		cb  int
	}
	leaves := make([]leaf, len(chunks))
	for i, c := range chunks {
		leaves[i] = leaf{bid: b.AddBlock(c), cb: len(c)}
	}

	fanout := (b.Format.MaxBlockPayload() - b.Format.XBlockHeaderSize()) / b.Format.IDSize()
	if b.XBlockFanout > 0 {
		fanout = min(fanout, b.XBlockFanout)
	}

	var level1 []leaf
	for start := 0; start < len(leaves); start += fanout {
		end := min(start+fanout, len(leaves))
		bids := make([]ndb.BID, 0, end-start)
		total := 0
		for _, l := range leaves[start:end] {
			bids = append(bids, l.bid)
			total += l.cb
		}
		level1 = append(level1, leaf{bid: b.AddInternalBlock(b.xblock(1, bids, total)), cb: total})
	}
	if len(level1) == 1 {
		return level1[0].bid
	}
	if len(level1) > fanout {
		panic("testutil: data tree deeper than an XXBLOCK")
	}

	bids := make([]ndb.BID, len(level1))
	total := 0
	for i, l := range level1 {
		bids[i] = l.bid
		total += l.cb
	}
	return b.AddInternalBlock(b.xblock(2, bids, total))
}

func (b *Builder) xblock(level int, bids []ndb.BID, total int) []byte {
	out := make([]byte, b.Format.XBlockHeaderSize()+len(bids)*b.Format.IDSize())
	out[0] = 0x01
	out[1] = byte(level)
	binary.LittleEndian.PutUint16(out[2:], uint16(len(bids)))
	binary.LittleEndian.PutUint32(out[4:], uint32(total))
	for i, bid := range bids {
		b.putID(out[b.Format.XBlockHeaderSize()+i*b.Format.IDSize():], uint64(bid))
	}
	return out
}

// AddSubnodes stores a subnode tree: one SLBLOCK, or an SIBLOCK over
// several SLBLOCKs when the entries exceed the fanout.
func (b *Builder) AddSubnodes(entries []ndb.SubnodeEntry) ndb.BID {
	if len(entries) == 0 {
		return 0
	}
	sorted := append([]ndb.SubnodeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NID < sorted[j].NID })

	f := b.Format
	fanout := (f.MaxBlockPayload() - f.SubnodeHeaderSize()) / f.SLEntrySize()
	if b.SubnodeFanout > 0 {
		fanout = min(fanout, b.SubnodeFanout)
	}
	if len(sorted) <= fanout {
		return b.AddInternalBlock(b.slblock(sorted))
	}

	var si []byte
	count := 0
	for start := 0; start < len(sorted); start += fanout {
		end := min(start+fanout, len(sorted))
		leaf := b.AddInternalBlock(b.slblock(sorted[start:end]))
		e := make([]byte, f.SIEntrySize())
		b.putID(e, uint64(sorted[start].NID))
		b.putID(e[f.IDSize():], uint64(leaf))
		si = append(si, e...)
		count++
	}
	hdr := make([]byte, f.SubnodeHeaderSize())
	hdr[0] = 0x02
	hdr[1] = 1
	binary.LittleEndian.PutUint16(hdr[2:], uint16(count))
	return b.AddInternalBlock(append(hdr, si...))
}

func (b *Builder) slblock(entries []ndb.SubnodeEntry) []byte {
	f := b.Format
	out := make([]byte, f.SubnodeHeaderSize()+len(entries)*f.SLEntrySize())
	out[0] = 0x02
	binary.LittleEndian.PutUint16(out[2:], uint16(len(entries)))
	for i, e := range entries {
		off := f.SubnodeHeaderSize() + i*f.SLEntrySize()
		b.putID(out[off:], uint64(e.NID))
		b.putID(out[off+f.IDSize():], uint64(e.DataBID))
		b.putID(out[off+2*f.IDSize():], uint64(e.SubnodeBID))
	}
	return out
}

// AddNode adds a node B-tree entry.
func (b *Builder) AddNode(nid ndb.NID, data, subnodes ndb.BID, parent ndb.NID) {
	b.nodes[nid] = ndb.NodeEntry{NID: nid, DataBID: data, SubnodeBID: subnodes, ParentNID: parent}
}

func (b *Builder) putID(dst []byte, v uint64) {
	if b.Format.IsUnicode() {
		binary.LittleEndian.PutUint64(dst, v)
		return
	}
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

// Image is a built container.
type Image struct {
	Data    []byte
	Format  ndb.Format
	blocks  map[ndb.BID]ndb.BlockEntry
	NBTRoot ndb.BREF
	BBTRoot ndb.BREF
}

// Blob returns a read-only view of the image.
func (img *Image) Blob() blobstore.Blob {
	return blobstore.NewBytesBlob(img.Data)
}

// Block returns the block B-tree entry written for bid.
func (img *Image) Block(bid ndb.BID) (ndb.BlockEntry, bool) {
	e, ok := img.blocks[bid]
	return e, ok
}

// Build lays out blocks, both B-trees and the header.
func (b *Builder) Build() *Image {
	f := b.Format
	w := &writer{b: b, buf: make([]byte, firstBlockOffset)}
	img := &Image{Format: f, blocks: make(map[ndb.BID]ndb.BlockEntry)}

	bbt := make([][]byte, 0, len(b.blocks))
	sort.Slice(b.blocks, func(i, j int) bool { return b.blocks[i].bid < b.blocks[j].bid })
	for _, blk := range b.blocks {
		e := w.writeBlock(blk)
		img.blocks[blk.bid] = e
		bbt = append(bbt, b.bbtEntry(e))
	}

	nids := make([]ndb.NID, 0, len(b.nodes))
	for nid := range b.nodes {
		nids = append(nids, nid)
	}
	sort.Slice(nids, func(i, j int) bool { return nids[i] < nids[j] })
	nbt := make([][]byte, 0, len(nids))
	for _, nid := range nids {
		nbt = append(nbt, b.nbtEntry(b.nodes[nid]))
	}

	img.BBTRoot = w.writeTree(ndb.PageTypeBBT, bbt)
	img.NBTRoot = w.writeTree(ndb.PageTypeNBT, nbt)

	b.writeHeader(w.buf, img)
	img.Data = w.buf
	return img
}

func (b *Builder) bbtEntry(e ndb.BlockEntry) []byte {
	f := b.Format
	out := make([]byte, f.BBTEntrySize())
	b.putID(out, uint64(e.BID))
	b.putID(out[f.IDSize():], e.Offset)
	off := 2 * f.IDSize()
	binary.LittleEndian.PutUint16(out[off:], e.Size)
	if f.Is4K() {
		binary.LittleEndian.PutUint16(out[off+2:], e.InflatedSize)
		binary.LittleEndian.PutUint32(out[off+4:], e.RefCount)
	} else {
		binary.LittleEndian.PutUint16(out[off+2:], uint16(e.RefCount))
	}
	return out
}

func (b *Builder) nbtEntry(e ndb.NodeEntry) []byte {
	f := b.Format
	out := make([]byte, f.NBTEntrySize())
	id := f.IDSize()
	b.putID(out, uint64(e.NID))
	b.putID(out[id:], uint64(e.DataBID))
	b.putID(out[2*id:], uint64(e.SubnodeBID))
	binary.LittleEndian.PutUint32(out[3*id:], uint32(e.ParentNID))
	return out
}

func (b *Builder) writeHeader(buf []byte, img *Image) {
	f := b.Format
	copy(buf[0:], "!BDN")
	if b.Client == ndb.ClientOST {
		copy(buf[8:], "SO")
	} else {
		copy(buf[8:], "SM")
	}
	binary.LittleEndian.PutUint16(buf[10:], f.Version)
	binary.LittleEndian.PutUint16(buf[12:], 19)
	buf[14], buf[15] = 0x01, 0x01

	eof := uint64(len(buf))
	if f.IsUnicode() {
		binary.LittleEndian.PutUint32(buf[40:], 0x1234)
		binary.LittleEndian.PutUint64(buf[184:], eof)
		binary.LittleEndian.PutUint64(buf[216:], uint64(img.NBTRoot.BID))
		binary.LittleEndian.PutUint64(buf[224:], img.NBTRoot.IB)
		binary.LittleEndian.PutUint64(buf[232:], uint64(img.BBTRoot.BID))
		binary.LittleEndian.PutUint64(buf[240:], img.BBTRoot.IB)
		buf[512] = 0x80
		buf[513] = byte(b.Crypt)
		binary.LittleEndian.PutUint64(buf[516:], b.next<<2)
	} else {
		binary.LittleEndian.PutUint32(buf[24:], uint32(b.next<<2))
		binary.LittleEndian.PutUint32(buf[32:], 0x1234)
		binary.LittleEndian.PutUint32(buf[168:], uint32(eof))
		binary.LittleEndian.PutUint32(buf[184:], uint32(img.NBTRoot.BID))
		binary.LittleEndian.PutUint32(buf[188:], uint32(img.NBTRoot.IB))
		binary.LittleEndian.PutUint32(buf[192:], uint32(img.BBTRoot.BID))
		binary.LittleEndian.PutUint32(buf[196:], uint32(img.BBTRoot.IB))
		buf[460] = 0x80
		buf[461] = byte(b.Crypt)
	}

	binary.LittleEndian.PutUint32(buf[4:], hash.CRC(buf[8:8+471]))
	if f.IsUnicode() {
		binary.LittleEndian.PutUint32(buf[524:], hash.CRC(buf[8:8+516]))
	}
}

type writer struct {
	b   *Builder
	buf []byte
}

func (w *writer) alloc(size, align int) (uint64, []byte) {
	off := (len(w.buf) + align - 1) / align * align
	w.buf = append(w.buf, make([]byte, off+size-len(w.buf))...)
	return uint64(off), w.buf[off : off+size]
}

func (w *writer) writeBlock(blk blockRec) ndb.BlockEntry {
	f := w.b.Format
	stored := bytes.Clone(blk.data)
	inflated := len(stored)
	if !blk.bid.IsInternal() {
		if f.Is4K() && w.b.Compress {
			stored = deflate(stored)
		}
		ndb.Encode(w.b.Crypt, stored, blk.bid)
	}

	off, dst := w.alloc(f.AlignedBlockSize(len(stored)), f.BlockAlign)
	copy(dst, stored)

	t := dst[len(dst)-f.BlockTrailerSize():]
	binary.LittleEndian.PutUint16(t, uint16(len(stored)))
	var sig uint16
	var crc uint32
	if !w.b.SkipChecksums {
		sig = ndb.Signature(off, blk.bid)
		crc = hash.CRC(stored)
	}
	binary.LittleEndian.PutUint16(t[2:], sig)
	if f.IsUnicode() {
		binary.LittleEndian.PutUint32(t[4:], crc)
		binary.LittleEndian.PutUint64(t[8:], uint64(blk.bid))
	} else {
		binary.LittleEndian.PutUint32(t[4:], uint32(blk.bid))
		binary.LittleEndian.PutUint32(t[8:], crc)
	}

	e := ndb.BlockEntry{
		BID:          blk.bid,
		Offset:       off,
		Size:         uint16(len(stored)),
		RefCount:     2,
		InflatedSize: uint16(len(stored)),
	}
	if f.Is4K() {
		e.InflatedSize = uint16(inflated)
	}
	return e
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

type pageRef struct {
	key uint64
	ref ndb.BREF
}

// writeTree writes leaf entries (sorted by key) and the intermediate levels
// above them. It returns the root page reference.
func (w *writer) writeTree(ptype ndb.PageType, leaves [][]byte) ndb.BREF {
	f := w.b.Format
	refs := w.writeLevel(ptype, 0, leaves)
	for level := 1; len(refs) > 1; level++ {
		entries := make([][]byte, len(refs))
		for i, r := range refs {
			e := make([]byte, f.BTEntrySize())
			w.b.putID(e, r.key)
			w.b.putID(e[f.IDSize():], uint64(r.ref.BID))
			w.b.putID(e[2*f.IDSize():], r.ref.IB)
			entries[i] = e
		}
		refs = w.writeLevel(ptype, level, entries)
	}
	return refs[0].ref
}

func (w *writer) writeLevel(ptype ndb.PageType, level int, entries [][]byte) []pageRef {
	f := w.b.Format
	size := f.BTEntrySize()
	if level == 0 {
		if ptype == ndb.PageTypeNBT {
			size = f.NBTEntrySize()
		} else {
			size = f.BBTEntrySize()
		}
	}
	capacity := f.PageEntriesSize() / size
	fanout := capacity
	if w.b.PageFanout > 0 {
		fanout = min(fanout, w.b.PageFanout)
	}

	var refs []pageRef
	for start := 0; start == 0 || start < len(entries); start += fanout {
		end := min(start+fanout, len(entries))
		chunk := entries[start:end]
		ref := w.writePage(ptype, level, size, capacity, chunk)
		var key uint64
		if len(chunk) > 0 {
			key = w.keyOf(chunk[0])
		}
		refs = append(refs, pageRef{key: key, ref: ref})
	}
	return refs
}

func (w *writer) keyOf(e []byte) uint64 {
	if w.b.Format.IsUnicode() {
		return binary.LittleEndian.Uint64(e)
	}
	return uint64(binary.LittleEndian.Uint32(e))
}

func (w *writer) writePage(ptype ndb.PageType, level, size, capacity int, entries [][]byte) ndb.BREF {
	f := w.b.Format
	bid := w.b.nextBID(false)
	off, page := w.alloc(f.PageSize, f.PageSize)

	for i, e := range entries {
		copy(page[i*size:], e)
	}
	meta := page[f.PageEntriesSize():]
	if f.Is4K() {
		binary.LittleEndian.PutUint16(meta[0:], uint16(len(entries)))
		binary.LittleEndian.PutUint16(meta[2:], uint16(capacity))
		meta[4] = byte(size)
		meta[5] = byte(level)
	} else {
		meta[0] = byte(len(entries))
		meta[1] = byte(capacity)
		meta[2] = byte(size)
		meta[3] = byte(level)
	}

	t := page[f.PageSize-f.PageTrailerSize():]
	t[0], t[1] = byte(ptype), byte(ptype)
	var sig uint16
	var crc uint32
	if !w.b.SkipChecksums {
		sig = ndb.Signature(off, bid)
		crc = hash.CRC(page[:f.PageSize-f.PageTrailerSize()])
	}
	binary.LittleEndian.PutUint16(t[2:], sig)
	if f.IsUnicode() {
		binary.LittleEndian.PutUint32(t[4:], crc)
		binary.LittleEndian.PutUint64(t[8:], uint64(bid))
	} else {
		binary.LittleEndian.PutUint32(t[4:], uint32(bid))
		binary.LittleEndian.PutUint32(t[8:], crc)
	}
	return ndb.BREF{BID: bid, IB: off}
}
