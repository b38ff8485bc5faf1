// Package rtf decodes compressed RTF bodies (PR_RTF_COMPRESSED).
//
// Two stream kinds exist: LZFu, an LZ77 variant with a 4 KiB ring buffer
// pre-seeded with common RTF text, and MELA, which stores the RTF verbatim.
// Both share a 16-byte header carrying the sizes and a checksum computed
// with the same CRC as the rest of the container.
package rtf
