// Package hash provides the checksum used throughout PST/OST containers.
//
// Headers, B-tree pages, data blocks and compressed RTF streams all carry a
// CRC-32 over the reflected IEEE polynomial (0xEDB88320). Unlike the zlib
// variant, the register starts at zero and the result is not inverted.
//
// # Usage
//
// For one-shot checksums:
//
//	crc := hash.CRC(page[:496])
//
// For streaming checksums:
//
//	h := hash.NewCRC()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	crc := h.Sum32()
//
// The table-driven implementation comes from github.com/klauspost/crc32,
// which uses hardware instructions where available.
package hash
