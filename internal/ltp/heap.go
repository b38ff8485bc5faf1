package ltp

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/pstgo/internal/ndb"
)

const (
	heapSignature = 0xEC

	// ClientSigPC marks a heap holding a property context.
	ClientSigPC = 0xBC
	// ClientSigTC marks a heap holding a table context.
	ClientSigTC = 0x7C
)

// HID addresses one heap allocation: a 16-bit block index, an 11-bit
// 1-based allocation index and a 5-bit type that is always zero.
type HID uint32

// BlockIndex returns the heap block holding the allocation.
func (h HID) BlockIndex() int { return int(h >> 16) }

// Index returns the 1-based allocation index within the block.
func (h HID) Index() int { return int(h>>5) & 0x7FF }

func (h HID) String() string { return fmt.Sprintf("hid 0x%X", uint32(h)) }

// HNID is either a HID or, when its low 5 bits are non-zero, the NID of a
// subnode of the heap's node.
type HNID uint32

// IsHID reports whether the value addresses the heap.
func (h HNID) IsHID() bool { return h&0x1F == 0 }

type heapBlock struct {
	data   []byte
	hnpm   int
	allocs []uint16
	err    error
}

// Heap is a decoded heap-on-node.
type Heap struct {
	db        *ndb.Database
	node      ndb.Node
	blocks    []heapBlock
	clientSig byte
	userRoot  HID
}

// OpenHeap reads the data blocks of node and decodes the heap header. Page
// maps are validated when first used.
func OpenHeap(ctx context.Context, db *ndb.Database, node ndb.Node) (*Heap, error) {
	blocks, err := db.NodeBlocks(ctx, node)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 || len(blocks[0]) < 12 {
		return nil, corruptf("heap of %s: missing header", node.NID)
	}
	b0 := blocks[0]
	if b0[2] != heapSignature {
		return nil, corruptf("heap of %s: signature %#x", node.NID, b0[2])
	}

	h := &Heap{
		db:        db,
		node:      node,
		blocks:    make([]heapBlock, len(blocks)),
		clientSig: b0[3],
		userRoot:  HID(binary.LittleEndian.Uint32(b0[4:])),
	}
	for i, data := range blocks {
		h.blocks[i] = parseHeapBlock(i, data)
	}
	return h, nil
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

func parseHeapBlock(i int, data []byte) heapBlock {
	hb := heapBlock{data: data}
	if len(data) < 2 {
		hb.err = corruptf("heap block %d: %d bytes", i, len(data))
		return hb
	}
	hb.hnpm = int(binary.LittleEndian.Uint16(data))
	if hb.hnpm < heapHeaderSize(i) || hb.hnpm+4 > len(data) {
		hb.err = corruptf("heap block %d: page map at %d of %d bytes", i, hb.hnpm, len(data))
		return hb
	}
	count := int(binary.LittleEndian.Uint16(data[hb.hnpm:]))
	if hb.hnpm+4+2*(count+1) > len(data) {
		hb.err = corruptf("heap block %d: %d allocations overflow the page map", i, count)
		return hb
	}

	hb.allocs = make([]uint16, count+1)
	prev := heapHeaderSize(i)
	for j := range hb.allocs {
		off := binary.LittleEndian.Uint16(data[hb.hnpm+4+2*j:])
		if int(off) < prev || int(off) > hb.hnpm {
			hb.err = corruptf("heap block %d: allocation offset %d out of order", i, off)
			return hb
		}
		prev = int(off)
		hb.allocs[j] = off
	}
	return hb
}

func (h *Heap) size() int {
	n := 0
	for _, b := range h.blocks {
		n += len(b.data)
	}
	return n
}

// ClientSig identifies the structure stored in the heap.
func (h *Heap) ClientSig() byte { return h.clientSig }

// UserRoot is the HID of the client's root allocation.
func (h *Heap) UserRoot() HID { return h.userRoot }

// Node returns the node the heap was read from.
func (h *Heap) Node() ndb.Node { return h.node }

// Database returns the owning database.
func (h *Heap) Database() *ndb.Database { return h.db }

// Get returns the bytes of an allocation. HID 0 is absent.
func (h *Heap) Get(hid HID) ([]byte, error) {
	if hid == 0 {
		return nil, notFoundf("null hid")
	}
	if hid&0x1F != 0 {
		return nil, corruptf("%s: type bits set", hid)
	}
	bi := hid.BlockIndex()
	if bi >= len(h.blocks) {
		return nil, corruptf("%s: block %d of %d", hid, bi, len(h.blocks))
	}
	b := &h.blocks[bi]
	if b.err != nil {
		return nil, b.err
	}
	idx := hid.Index()
	if idx == 0 || idx >= len(b.allocs) {
		return nil, corruptf("%s: index %d of %d allocations", hid, idx, len(b.allocs)-1)
	}
	return b.data[b.allocs[idx-1]:b.allocs[idx]], nil
}

// ReadHNID resolves a HID in the heap or a NID in the node's subnode
// tree. HNID 0 yields an empty value.
func (h *Heap) ReadHNID(ctx context.Context, hnid HNID) ([]byte, error) {
	if hnid == 0 {
		return nil, nil
	}
	if hnid.IsHID() {
		return h.Get(HID(hnid))
	}
	sub, err := h.db.SubnodeOf(ctx, h.node, ndb.NID(hnid))
	if err != nil {
		return nil, ndb.Dangling(err, "hnid %#x", uint32(hnid))
	}
	return h.db.ReadNode(ctx, sub)
}
