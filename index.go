package pstgo

import (
	"context"
	"iter"

	"github.com/hupe1980/pstgo/internal/ndb"
)

// NodeType is the type tag in the low five bits of a node id.
type NodeType = ndb.NIDType

// Node types counted by NodeIndex.
const (
	NodeTypeFolder         = ndb.NIDTypeNormalFolder
	NodeTypeSearchFolder   = ndb.NIDTypeSearchFolder
	NodeTypeMessage        = ndb.NIDTypeNormalMessage
	NodeTypeAssocMessage   = ndb.NIDTypeAssocMessage
	NodeTypeHierarchyTable = ndb.NIDTypeHierarchyTable
	NodeTypeContentsTable  = ndb.NIDTypeContentsTable
	NodeTypeInternal       = ndb.NIDTypeInternal
)

// NodeIndex is a snapshot of all top-level node ids grouped by type.
type NodeIndex struct {
	idx *ndb.NodeIndex
}

// NodeIndex scans the node B-tree. The snapshot stays valid after Clear
// since it holds no element state.
func (f *File) NodeIndex(ctx context.Context) (*NodeIndex, error) {
	if _, err := f.generation(); err != nil {
		return nil, err
	}
	idx, err := ndb.BuildNodeIndex(ctx, f.db)
	if err != nil {
		return nil, translateError("node index", 0, err)
	}
	return &NodeIndex{idx: idx}, nil
}

// Len returns the number of nodes.
func (x *NodeIndex) Len() uint64 { return x.idx.Len() }

// Count returns the number of nodes of type t.
func (x *NodeIndex) Count(t NodeType) uint64 { return x.idx.Count(t) }

// Contains reports whether nid has a node entry.
func (x *NodeIndex) Contains(nid uint32) bool { return x.idx.Contains(ndb.NID(nid)) }

// Types returns the node types present in ascending order.
func (x *NodeIndex) Types() []NodeType { return x.idx.Types() }

// NIDs iterates the node ids of type t in ascending order.
func (x *NodeIndex) NIDs(t NodeType) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for nid := range x.idx.NIDs(t) {
			if !yield(uint32(nid)) {
				return
			}
		}
	}
}

// Orphans returns parent ids referenced by nodes but missing from the
// node B-tree.
func (x *NodeIndex) Orphans() []uint32 {
	missing := x.idx.MissingParents()
	out := make([]uint32, len(missing))
	for i, nid := range missing {
		out[i] = uint32(nid)
	}
	return out
}
