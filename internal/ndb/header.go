package ndb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/internal/hash"
)

// HeaderSize is the number of bytes read for the file header.
const HeaderSize = 564

const (
	ansiHeaderSize = 512

	crcPartialLen = 471
	crcFullLen    = 516
)

// Client distinguishes personal folders from offline caches.
type Client uint8

const (
	ClientPST Client = iota + 1
	ClientOST
)

func (c Client) String() string {
	switch c {
	case ClientPST:
		return "pst"
	case ClientOST:
		return "ost"
	default:
		return "unknown"
	}
}

// CryptMethod is the file-wide encoding of external data blocks.
type CryptMethod uint8

const (
	CryptNone    CryptMethod = 0
	CryptPermute CryptMethod = 1
	CryptCyclic  CryptMethod = 2
)

func (m CryptMethod) String() string {
	switch m {
	case CryptNone:
		return "none"
	case CryptPermute:
		return "permute"
	case CryptCyclic:
		return "cyclic"
	default:
		return fmt.Sprintf("crypt-%d", uint8(m))
	}
}

// Header is the decoded file header.
type Header struct {
	Format        Format
	Client        Client
	ClientVersion uint16
	Crypt         CryptMethod
	NBTRoot       BREF
	BBTRoot       BREF
	FileEOF       uint64
	Unique        uint32
}

// ReadHeader reads and parses the header of blob.
func ReadHeader(ctx context.Context, blob blobstore.Blob, verify bool) (*Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := blob.ReadAt(ctx, buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read header: %w", ErrIO, err)
	}
	if n < ansiHeaderSize {
		return nil, formatf("file too small for a header (%d bytes)", n)
	}
	return ParseHeader(buf[:n], verify)
}

// ParseHeader validates magic values, version and (optionally) checksums.
func ParseHeader(buf []byte, verify bool) (*Header, error) {
	if len(buf) < ansiHeaderSize {
		return nil, formatf("header too short (%d bytes)", len(buf))
	}
	if string(buf[0:4]) != "!BDN" {
		return nil, formatf("bad magic %q", buf[0:4])
	}

	h := &Header{}
	switch string(buf[8:10]) {
	case "SM":
		h.Client = ClientPST
	case "SO":
		h.Client = ClientOST
	default:
		return nil, formatf("unsupported client magic %q", buf[8:10])
	}

	version := binary.LittleEndian.Uint16(buf[10:])
	f, ok := formatForVersion(version)
	if !ok {
		return nil, formatf("unsupported version %d", version)
	}
	h.Format = f
	h.ClientVersion = binary.LittleEndian.Uint16(buf[12:])

	if verify {
		stored := binary.LittleEndian.Uint32(buf[4:])
		if got := hash.CRC(buf[8 : 8+crcPartialLen]); got != stored {
			return nil, formatf("header checksum mismatch (stored %08x, computed %08x)", stored, got)
		}
	}

	var crypt byte
	if f.IsUnicode() {
		if len(buf) < HeaderSize {
			return nil, formatf("unicode header too short (%d bytes)", len(buf))
		}
		if verify {
			stored := binary.LittleEndian.Uint32(buf[524:])
			if got := hash.CRC(buf[8 : 8+crcFullLen]); got != stored {
				return nil, formatf("full header checksum mismatch (stored %08x, computed %08x)", stored, got)
			}
		}
		h.Unique = binary.LittleEndian.Uint32(buf[40:])
		h.FileEOF = binary.LittleEndian.Uint64(buf[184:])
		h.NBTRoot = BREF{BID: BID(binary.LittleEndian.Uint64(buf[216:])), IB: binary.LittleEndian.Uint64(buf[224:])}
		h.BBTRoot = BREF{BID: BID(binary.LittleEndian.Uint64(buf[232:])), IB: binary.LittleEndian.Uint64(buf[240:])}
		crypt = buf[513]
	} else {
		h.Unique = binary.LittleEndian.Uint32(buf[32:])
		h.FileEOF = uint64(binary.LittleEndian.Uint32(buf[168:]))
		h.NBTRoot = BREF{BID: BID(binary.LittleEndian.Uint32(buf[184:])), IB: uint64(binary.LittleEndian.Uint32(buf[188:]))}
		h.BBTRoot = BREF{BID: BID(binary.LittleEndian.Uint32(buf[192:])), IB: uint64(binary.LittleEndian.Uint32(buf[196:]))}
		crypt = buf[461]
	}

	switch m := CryptMethod(crypt); m {
	case CryptNone, CryptPermute, CryptCyclic:
		h.Crypt = m
	default:
		return nil, formatf("unsupported encryption method %d", crypt)
	}
	return h, nil
}
