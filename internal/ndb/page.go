package ndb

import (
	"context"
	"encoding/binary"

	"github.com/hupe1980/pstgo/internal/cache"
	"github.com/hupe1980/pstgo/internal/hash"
)

// PageType is the ptype field of a page trailer.
type PageType uint8

const (
	PageTypeBBT  PageType = 0x80
	PageTypeNBT  PageType = 0x81
	PageTypeFMap PageType = 0x82
	PageTypePMap PageType = 0x83
	PageTypeAMap PageType = 0x84
	PageTypeDL   PageType = 0x86
)

func (t PageType) String() string {
	switch t {
	case PageTypeBBT:
		return "bbt"
	case PageTypeNBT:
		return "nbt"
	case PageTypeFMap:
		return "fmap"
	case PageTypePMap:
		return "pmap"
	case PageTypeAMap:
		return "amap"
	case PageTypeDL:
		return "dlist"
	default:
		return "unknown"
	}
}

// PageTrailer is the decoded trailer of a page.
type PageTrailer struct {
	Type      PageType
	Signature uint16
	CRC       uint32
	BID       BID
}

// Signature computes the wSig of a page or block at ib with id bid.
func Signature(ib uint64, bid BID) uint16 {
	v := ib ^ uint64(bid)
	return uint16(v>>16) ^ uint16(v)
}

func (f Format) parsePageTrailer(page []byte) (PageTrailer, PageType) {
	t := page[len(page)-f.PageTrailerSize():]
	tr := PageTrailer{
		Type:      PageType(t[0]),
		Signature: binary.LittleEndian.Uint16(t[2:]),
	}
	if f.IsUnicode() {
		tr.CRC = binary.LittleEndian.Uint32(t[4:])
		tr.BID = BID(binary.LittleEndian.Uint64(t[8:]))
	} else {
		tr.BID = BID(binary.LittleEndian.Uint32(t[4:]))
		tr.CRC = binary.LittleEndian.Uint32(t[8:])
	}
	return tr, PageType(t[1])
}

// ReadPage reads the page at ref and validates its trailer against the
// expected type. The returned slice is shared and must not be modified.
func (db *Database) ReadPage(ctx context.Context, ref BREF, ptype PageType) ([]byte, error) {
	f := db.header.Format
	if ref.IB%uint64(f.BlockAlign) != 0 {
		return nil, corruptf("%s page %s at unaligned offset %d", ptype, ref.BID, ref.IB)
	}
	return db.cached(ctx, cache.CacheKindPage, ref.IB, func() ([]byte, error) {
		page := make([]byte, f.PageSize)
		if err := db.readAt(ctx, cache.CacheKindPage, page, ref.IB); err != nil {
			return nil, err
		}
		if err := db.checkPage(page, ref, ptype); err != nil {
			return nil, err
		}
		return page, nil
	})
}

func (db *Database) checkPage(page []byte, ref BREF, ptype PageType) error {
	f := db.header.Format
	tr, repeat := f.parsePageTrailer(page)
	if tr.Type != ptype || repeat != ptype {
		return corruptf("page at %d: type %#x/%#x, want %s", ref.IB, uint8(tr.Type), uint8(repeat), ptype)
	}
	if tr.BID != ref.BID {
		return corruptf("page at %d: trailer bid %s, want %s", ref.IB, tr.BID, ref.BID)
	}
	if !db.opts.VerifyChecksums {
		return nil
	}
	if tr.Signature != 0 {
		if sig := Signature(ref.IB, ref.BID); sig != tr.Signature {
			return corruptf("page at %d: signature %04x, want %04x", ref.IB, tr.Signature, sig)
		}
	}
	if tr.CRC != 0 {
		if crc := hash.CRC(page[:len(page)-f.PageTrailerSize()]); crc != tr.CRC {
			return corruptf("page at %d: checksum %08x, computed %08x", ref.IB, tr.CRC, crc)
		}
	}
	return nil
}

// btPage is a decoded B-tree page.
type btPage struct {
	entries []byte
	count   int
	size    int
	level   int
}

func (p *btPage) entry(i int) []byte {
	return p.entries[i*p.size : (i+1)*p.size]
}

func (db *Database) readBTPage(ctx context.Context, ref BREF, ptype PageType) (*btPage, error) {
	page, err := db.ReadPage(ctx, ref, ptype)
	if err != nil {
		return nil, err
	}

	f := db.header.Format
	meta := page[f.PageEntriesSize():]
	p := &btPage{}
	var max int
	if f.Is4K() {
		p.count = int(binary.LittleEndian.Uint16(meta[0:]))
		max = int(binary.LittleEndian.Uint16(meta[2:]))
		p.size = int(meta[4])
		p.level = int(meta[5])
	} else {
		p.count = int(meta[0])
		max = int(meta[1])
		p.size = int(meta[2])
		p.level = int(meta[3])
	}

	want := f.BTEntrySize()
	if p.level == 0 {
		if ptype == PageTypeNBT {
			want = f.NBTEntrySize()
		} else {
			want = f.BBTEntrySize()
		}
	}
	switch {
	case p.size < want:
		return nil, corruptf("%s page at %d: entry size %d, want at least %d", ptype, ref.IB, p.size, want)
	case p.count > max || p.count*p.size > f.PageEntriesSize():
		return nil, corruptf("%s page at %d: %d entries of %d bytes overflow the page", ptype, ref.IB, p.count, p.size)
	}
	p.entries = page[:p.count*p.size]
	return p, nil
}
