package ndb

import (
	"context"
	"encoding/binary"
	"fmt"
)

// NodeEntry is a node B-tree leaf record.
type NodeEntry struct {
	NID        NID
	DataBID    BID
	SubnodeBID BID // zero when the node has no subnodes
	ParentNID  NID
}

// Node is a resolvable node reference. Top-level nodes come from the node
// B-tree, local nodes from a parent's subnode tree.
type Node struct {
	NID        NID
	DataBID    BID
	SubnodeBID BID
}

func (n Node) String() string {
	return fmt.Sprintf("node %s (data %s, subnodes %s)", n.NID, n.DataBID, n.SubnodeBID)
}

func (f Format) parseNodeEntry(e []byte) NodeEntry {
	if f.IsUnicode() {
		return NodeEntry{
			NID:        NID(binary.LittleEndian.Uint32(e)),
			DataBID:    BID(binary.LittleEndian.Uint64(e[8:])),
			SubnodeBID: BID(binary.LittleEndian.Uint64(e[16:])),
			ParentNID:  NID(binary.LittleEndian.Uint32(e[24:])),
		}
	}
	return NodeEntry{
		NID:        NID(binary.LittleEndian.Uint32(e)),
		DataBID:    BID(binary.LittleEndian.Uint32(e[4:])),
		SubnodeBID: BID(binary.LittleEndian.Uint32(e[8:])),
		ParentNID:  NID(binary.LittleEndian.Uint32(e[12:])),
	}
}

// ResolveNode looks up nid in the node B-tree.
func (db *Database) ResolveNode(ctx context.Context, nid NID) (NodeEntry, error) {
	if v, ok := db.nodes.Load(nid); ok {
		return v.(NodeEntry), nil
	}

	e, err := db.lookup(ctx, db.header.NBTRoot, PageTypeNBT, uint64(nid))
	if err != nil {
		if err == ErrNotFound {
			return NodeEntry{}, fmt.Errorf("%w: node %s", ErrNotFound, nid)
		}
		return NodeEntry{}, err
	}

	entry := db.header.Format.parseNodeEntry(e)
	db.nodes.Store(nid, entry)
	return entry, nil
}

// Node resolves a top-level node.
func (db *Database) Node(ctx context.Context, nid NID) (Node, error) {
	e, err := db.ResolveNode(ctx, nid)
	if err != nil {
		return Node{}, err
	}
	return Node{NID: e.NID, DataBID: e.DataBID, SubnodeBID: e.SubnodeBID}, nil
}

// SubnodeOf resolves a local node in parent's subnode tree.
func (db *Database) SubnodeOf(ctx context.Context, parent Node, nid NID) (Node, error) {
	e, err := db.ResolveSubnode(ctx, parent.SubnodeBID, nid)
	if err != nil {
		return Node{}, err
	}
	return Node{NID: e.NID, DataBID: e.DataBID, SubnodeBID: e.SubnodeBID}, nil
}

// ReadNode returns the node's data as one slice.
func (db *Database) ReadNode(ctx context.Context, n Node) ([]byte, error) {
	return db.ResolveBlock(ctx, n.DataBID)
}

// NodeBlocks returns the node's leaf data blocks in order.
func (db *Database) NodeBlocks(ctx context.Context, n Node) ([][]byte, error) {
	return db.ResolveBlocks(ctx, n.DataBID)
}

// WalkNodes calls fn for every node B-tree entry in NID order.
func (db *Database) WalkNodes(ctx context.Context, fn func(NodeEntry) error) error {
	f := db.header.Format
	return db.walk(ctx, db.header.NBTRoot, PageTypeNBT, func(e []byte) error {
		return fn(f.parseNodeEntry(e))
	})
}
