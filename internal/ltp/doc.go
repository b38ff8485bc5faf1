// Package ltp decodes the lists, tables and properties layer of PST files.
//
// Every entity node holds a heap-on-node (Heap). A property context
// (PropertyContext) is a B-tree on that heap keyed by property id. A table
// context (TableContext) adds a row index and a fixed-stride row matrix
// that lives either in the heap or, for large tables, in a subnode.
//
// Values carry their stored type. Variable-size values are read through an
// HNID, which addresses the heap or a subnode depending on its low bits.
package ltp
