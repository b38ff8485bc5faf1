// Package conv provides checked integer conversions for values decoded
// from untrusted mailbox files: offsets, byte counts and row counts.
//
// Provably bounded conversions, such as loop indices, use plain casts.
package conv
