// Package cache provides byte-bounded LRU caches for immutable file data.
//
// Keys carry a CacheKind (B-tree pages, decoded blocks, remote blob chunks), a
// source id so that several open files can share one cache, and a generation
// that a file handle bumps when it drops its caches.
//
// LRUBlockCache is a single-lock LRU. ShardedLRUBlockCache spreads keys over
// independent shards for concurrent readers. Both optionally reserve their
// bytes against a resource.Controller memory limit.
package cache
