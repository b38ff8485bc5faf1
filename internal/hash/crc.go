package hash

import (
	"hash"

	"github.com/klauspost/crc32"
)

// crcTable is the reflected IEEE table. PST checksums run the same polynomial
// but start from zero and skip the final inversion.
var crcTable = crc32.IEEETable

// CRC computes the PST checksum of data.
func CRC(data []byte) uint32 {
	return UpdateCRC(0, data)
}

// UpdateCRC continues a PST checksum with more data.
func UpdateCRC(crc uint32, data []byte) uint32 {
	return ^crc32.Update(^crc, crcTable, data)
}

// NewCRC returns a streaming PST checksum.
func NewCRC() hash.Hash32 {
	return &digest{}
}

type digest struct {
	crc uint32
}

func (d *digest) Write(p []byte) (int, error) {
	d.crc = UpdateCRC(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum(b []byte) []byte {
	s := d.crc
	return append(b, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *digest) Reset()         { d.crc = 0 }
func (d *digest) Size() int      { return 4 }
func (d *digest) BlockSize() int { return 1 }
func (d *digest) Sum32() uint32  { return d.crc }
