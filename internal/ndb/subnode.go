package ndb

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
)

// SubnodeEntry is one SLBLOCK record.
type SubnodeEntry struct {
	NID        NID
	DataBID    BID
	SubnodeBID BID
}

type subnodeBlock struct {
	level   int
	count   int
	size    int
	entries []byte
}

func (db *Database) readSubnodeBlock(ctx context.Context, bid BID) (*subnodeBlock, error) {
	if !bid.IsInternal() {
		return nil, corruptf("subnode block %s is not internal", bid)
	}
	data, err := db.readBlock(ctx, bid)
	if err != nil {
		return nil, err
	}

	f := db.header.Format
	hdr := f.SubnodeHeaderSize()
	if len(data) < hdr || data[0] != btypeSubnodes {
		return nil, corruptf("block %s is not a subnode block", bid)
	}
	b := &subnodeBlock{
		level: int(data[1]),
		count: int(binary.LittleEndian.Uint16(data[2:])),
	}
	switch b.level {
	case 0:
		b.size = f.SLEntrySize()
	case 1:
		b.size = f.SIEntrySize()
	default:
		return nil, corruptf("subnode block %s: level %d", bid, b.level)
	}
	if hdr+b.count*b.size > len(data) {
		return nil, corruptf("subnode block %s: %d entries overflow %d bytes", bid, b.count, len(data))
	}
	b.entries = data[hdr : hdr+b.count*b.size]
	return b, nil
}

func (b *subnodeBlock) nid(f Format, i int) NID {
	return NID(uint32(f.keyAt(b.entries[i*b.size:])))
}

func (b *subnodeBlock) leaf(f Format, i int) SubnodeEntry {
	e := b.entries[i*b.size:]
	id := f.IDSize()
	return SubnodeEntry{
		NID:        NID(uint32(f.keyAt(e))),
		DataBID:    BID(f.keyAt(e[id:])),
		SubnodeBID: BID(f.keyAt(e[2*id:])),
	}
}

func (b *subnodeBlock) child(f Format, i int) BID {
	return BID(f.keyAt(b.entries[i*b.size+f.IDSize():]))
}

// ResolveSubnode finds nid in the subnode tree rooted at subnodeBID.
func (db *Database) ResolveSubnode(ctx context.Context, subnodeBID BID, nid NID) (SubnodeEntry, error) {
	if subnodeBID == 0 {
		return SubnodeEntry{}, fmt.Errorf("%w: subnode %s (no subnode tree)", ErrNotFound, nid)
	}

	f := db.header.Format
	bid := subnodeBID
	for depth := 0; depth < 2; depth++ {
		b, err := db.readSubnodeBlock(ctx, bid)
		if err != nil {
			return SubnodeEntry{}, err
		}
		if depth == 1 && b.level != 0 {
			return SubnodeEntry{}, corruptf("subnode block %s: level %d below an SIBLOCK", bid, b.level)
		}

		i := sort.Search(b.count, func(i int) bool { return b.nid(f, i) > nid })
		if b.level == 0 {
			if i == 0 || b.nid(f, i-1) != nid {
				break
			}
			return b.leaf(f, i-1), nil
		}
		if i == 0 {
			break
		}
		bid = b.child(f, i-1)
	}
	return SubnodeEntry{}, fmt.Errorf("%w: subnode %s", ErrNotFound, nid)
}

// Subnodes lists all entries of the subnode tree in NID order.
func (db *Database) Subnodes(ctx context.Context, subnodeBID BID) ([]SubnodeEntry, error) {
	if subnodeBID == 0 {
		return nil, nil
	}

	f := db.header.Format
	b, err := db.readSubnodeBlock(ctx, subnodeBID)
	if err != nil {
		return nil, err
	}
	if b.level == 0 {
		out := make([]SubnodeEntry, b.count)
		for i := range out {
			out[i] = b.leaf(f, i)
		}
		return out, nil
	}

	var out []SubnodeEntry
	for i := 0; i < b.count; i++ {
		child := b.child(f, i)
		leaf, err := db.readSubnodeBlock(ctx, child)
		if err != nil {
			return nil, err
		}
		if leaf.level != 0 {
			return nil, corruptf("subnode block %s: level %d below an SIBLOCK", child, leaf.level)
		}
		for j := 0; j < leaf.count; j++ {
			out = append(out, leaf.leaf(f, j))
		}
	}
	return out, nil
}
