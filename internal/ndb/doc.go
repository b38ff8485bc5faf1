// Package ndb reads the node database layer of PST and OST files.
//
// A Database resolves node IDs through the node B-tree and block IDs
// through the block B-tree, validates page and block trailers, decrypts
// external blocks with the method declared in the header, inflates
// compressed 4K-format blocks and flattens XBLOCK data trees. Subnode
// trees are resolved with ResolveSubnode.
//
// Both the 32-bit ANSI and the 64-bit Unicode layouts are supported. All
// record sizes are derived from the Format found in the header.
//
// Returned byte slices may be shared with the block cache and must be
// treated as read-only.
package ndb
