package rtf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/pstgo/internal/hash"
)

const (
	magicCompressed   = 0x75465A4C // "LZFu"
	magicUncompressed = 0x414C454D // "MELA"

	headerSize = 16
	ringSize   = 4096

	// maxRawSize bounds the allocation for the declared output size.
	maxRawSize = 64 << 20
)

var (
	// ErrCorrupt is returned for malformed streams.
	ErrCorrupt = errors.New("rtf: corrupt compressed rtf")
	// ErrChecksum is returned by DecompressVerify when the CRC does not match.
	ErrChecksum = errors.New("rtf: checksum mismatch")
)

// prebuf seeds the ring buffer before decoding.
const prebuf = "{\\rtf1\\ansi\\mac\\deff0\\deftab720{\\fonttbl;}" +
	"{\\f0\\fnil \\froman \\fswiss \\fmodern \\fscript " +
	"\\fdecor MS Sans SerifSymbolArialTimes New Roman" +
	"Courier{\\colortbl\\red0\\green0\\blue0\r\n\\par " +
	"\\pard\\plain\\f0\\fs20\\b\\i\\u\\tab\\tx"

// Header is the fixed stream header.
type Header struct {
	CompSize uint32
	RawSize  uint32
	Magic    uint32
	CRC      uint32
}

// Compressed reports an LZFu stream.
func (h Header) Compressed() bool { return h.Magic == magicCompressed }

// ParseHeader decodes the stream header.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: %d byte stream", ErrCorrupt, len(data))
	}
	h := Header{
		CompSize: binary.LittleEndian.Uint32(data),
		RawSize:  binary.LittleEndian.Uint32(data[4:]),
		Magic:    binary.LittleEndian.Uint32(data[8:]),
		CRC:      binary.LittleEndian.Uint32(data[12:]),
	}
	if h.Magic != magicCompressed && h.Magic != magicUncompressed {
		return Header{}, fmt.Errorf("%w: unknown magic %#x", ErrCorrupt, h.Magic)
	}
	return h, nil
}

// Decompress returns the RTF text of a stream without checking its CRC.
func Decompress(data []byte) ([]byte, error) {
	return decompress(data, false)
}

// DecompressVerify is Decompress with CRC verification of LZFu streams.
func DecompressVerify(data []byte) ([]byte, error) {
	return decompress(data, true)
}

func decompress(data []byte, verify bool) ([]byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.RawSize > maxRawSize {
		return nil, fmt.Errorf("%w: raw size %d", ErrCorrupt, h.RawSize)
	}
	end := int(h.CompSize) + 4
	if end < headerSize || end > len(data) {
		return nil, fmt.Errorf("%w: compressed size %d of %d bytes", ErrCorrupt, h.CompSize, len(data))
	}
	body := data[headerSize:end]

	if !h.Compressed() {
		if int(h.RawSize) > len(body) {
			return nil, fmt.Errorf("%w: %d raw bytes in %d", ErrCorrupt, h.RawSize, len(body))
		}
		return append([]byte(nil), body[:h.RawSize]...), nil
	}

	if verify {
		if crc := hash.CRC(body); crc != h.CRC {
			return nil, fmt.Errorf("%w: stored %#x, computed %#x", ErrChecksum, h.CRC, crc)
		}
	}
	return inflate(body, int(h.RawSize))
}

func inflate(in []byte, rawSize int) ([]byte, error) {
	var ring [ringSize]byte
	w := copy(ring[:], prebuf)
	out := make([]byte, 0, rawSize)

	put := func(b byte) {
		out = append(out, b)
		ring[w] = b
		w = (w + 1) % ringSize
	}

	for i := 0; i < len(in); {
		control := in[i]
		i++
		for bit := 0; bit < 8 && i < len(in); bit++ {
			if control&(1<<bit) == 0 {
				put(in[i])
				i++
				continue
			}
			if i+1 >= len(in) {
				return nil, fmt.Errorf("%w: truncated reference at %d", ErrCorrupt, i)
			}
			ref := int(in[i])<<8 | int(in[i+1])
			i += 2
			off, n := ref>>4, ref&0xF+2
			if off == w {
				return trim(out, rawSize)
			}
			for k := range n {
				put(ring[(off+k)%ringSize])
			}
		}
	}
	return trim(out, rawSize)
}

func trim(out []byte, rawSize int) ([]byte, error) {
	if len(out) < rawSize {
		return nil, fmt.Errorf("%w: %d of %d bytes decoded", ErrCorrupt, len(out), rawSize)
	}
	return out[:rawSize], nil
}

// Compress encodes raw as an LZFu stream with a greedy match search.
func Compress(raw []byte) []byte {
	var ring [ringSize]byte
	w := copy(ring[:], prebuf)
	put := func(b byte) {
		ring[w] = b
		w = (w + 1) % ringSize
	}

	var body []byte
	var control byte
	var group []byte
	bits := 0
	flush := func() {
		body = append(body, control)
		body = append(body, group...)
		control, group, bits = 0, group[:0], 0
	}

	for pos := 0; pos < len(raw); {
		off, n := longestMatch(&ring, w, raw[pos:])
		if n >= 2 {
			control |= 1 << bits
			ref := uint16(off<<4 | (n - 2))
			group = append(group, byte(ref>>8), byte(ref))
			for _, b := range raw[pos : pos+n] {
				put(b)
			}
			pos += n
		} else {
			group = append(group, raw[pos])
			put(raw[pos])
			pos++
		}
		if bits++; bits == 8 {
			flush()
		}
	}

	control |= 1 << bits
	ref := uint16(w << 4)
	group = append(group, byte(ref>>8), byte(ref))
	flush()

	out := make([]byte, headerSize, headerSize+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(body)+headerSize-4))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[8:], magicCompressed)
	binary.LittleEndian.PutUint32(out[12:], hash.CRC(body))
	return append(out, body...)
}

// longestMatch finds a ring run of up to 17 bytes equal to the head of s
// that does not reach the write position w.
func longestMatch(ring *[ringSize]byte, w int, s []byte) (off, n int) {
	limit := min(len(s), 17)
	for o := range ringSize {
		dist := (w - o + ringSize) % ringSize
		if dist == 0 {
			continue
		}
		k := 0
		for k < limit && k < dist && ring[(o+k)%ringSize] == s[k] {
			k++
		}
		if k > n {
			off, n = o, k
			if n == limit {
				break
			}
		}
	}
	return off, n
}
