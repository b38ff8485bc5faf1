package ndb

import (
	"context"
	"iter"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// NodeIndex is a snapshot of the node B-tree as one bitmap per NID type.
type NodeIndex struct {
	all     *roaring.Bitmap
	byType  map[NIDType]*roaring.Bitmap
	parents *roaring.Bitmap
}

// BuildNodeIndex walks the node B-tree once.
func BuildNodeIndex(ctx context.Context, db *Database) (*NodeIndex, error) {
	idx := &NodeIndex{
		all:     roaring.New(),
		byType:  make(map[NIDType]*roaring.Bitmap),
		parents: roaring.New(),
	}
	err := db.WalkNodes(ctx, func(e NodeEntry) error {
		idx.add(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *NodeIndex) add(e NodeEntry) {
	idx.all.Add(uint32(e.NID))
	bm, ok := idx.byType[e.NID.Type()]
	if !ok {
		bm = roaring.New()
		idx.byType[e.NID.Type()] = bm
	}
	bm.Add(uint32(e.NID))
	if e.ParentNID != 0 && e.ParentNID != e.NID {
		idx.parents.Add(uint32(e.ParentNID))
	}
}

// Contains reports whether nid has a node B-tree entry.
func (idx *NodeIndex) Contains(nid NID) bool {
	return idx.all.Contains(uint32(nid))
}

// Len returns the number of nodes.
func (idx *NodeIndex) Len() uint64 {
	return idx.all.GetCardinality()
}

// Count returns the number of nodes of type t.
func (idx *NodeIndex) Count(t NIDType) uint64 {
	if bm, ok := idx.byType[t]; ok {
		return bm.GetCardinality()
	}
	return 0
}

// Types returns the NID types present, in ascending order.
func (idx *NodeIndex) Types() []NIDType {
	types := make([]NIDType, 0, len(idx.byType))
	for t := range idx.byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// NIDs iterates the nodes of type t in ascending order.
func (idx *NodeIndex) NIDs(t NIDType) iter.Seq[NID] {
	return func(yield func(NID) bool) {
		bm, ok := idx.byType[t]
		if !ok {
			return
		}
		it := bm.Iterator()
		for it.HasNext() {
			if !yield(NID(it.Next())) {
				return
			}
		}
	}
}

// MissingParents returns the referenced parent NIDs without an entry.
func (idx *NodeIndex) MissingParents() []NID {
	missing := roaring.AndNot(idx.parents, idx.all)
	out := make([]NID, 0, missing.GetCardinality())
	it := missing.Iterator()
	for it.HasNext() {
		out = append(out, NID(it.Next()))
	}
	return out
}
