package ndb

import "fmt"

// Width is the on-disk size of BIDs and offsets.
type Width uint8

const (
	// WidthANSI is the 32-bit layout of Outlook 97-2002.
	WidthANSI Width = iota + 1
	// WidthUnicode is the 64-bit layout of Outlook 2003 and later.
	WidthUnicode
)

func (w Width) String() string {
	switch w {
	case WidthANSI:
		return "ansi"
	case WidthUnicode:
		return "unicode"
	default:
		return "unknown"
	}
}

// Format describes the physical layout of a container.
type Format struct {
	Width   Width
	Version uint16
	// PageSize is the size of B-tree and allocation map pages.
	PageSize int
	// BlockAlign is the alignment of data blocks in the file.
	BlockAlign int
	// MaxBlockSize is the largest aligned block including its trailer.
	MaxBlockSize int
}

var (
	FormatANSI      = Format{Width: WidthANSI, Version: 14, PageSize: 512, BlockAlign: 64, MaxBlockSize: 8192}
	FormatUnicode   = Format{Width: WidthUnicode, Version: 23, PageSize: 512, BlockAlign: 64, MaxBlockSize: 8192}
	FormatUnicode4K = Format{Width: WidthUnicode, Version: 36, PageSize: 4096, BlockAlign: 512, MaxBlockSize: 65536}
)

func formatForVersion(v uint16) (Format, bool) {
	var f Format
	switch v {
	case 14, 15:
		f = FormatANSI
	case 23:
		f = FormatUnicode
	case 36, 37:
		f = FormatUnicode4K
	default:
		return Format{}, false
	}
	f.Version = v
	return f, true
}

func (f Format) String() string {
	if f.Is4K() {
		return fmt.Sprintf("%s-4k (v%d)", f.Width, f.Version)
	}
	return fmt.Sprintf("%s (v%d)", f.Width, f.Version)
}

// IsUnicode reports the 64-bit layout.
func (f Format) IsUnicode() bool { return f.Width == WidthUnicode }

// Is4K reports the 4 KiB page variant, which may zlib-compress blocks.
func (f Format) Is4K() bool { return f.PageSize == 4096 }

// IDSize is the on-disk size of a BID, an offset and a B-tree key.
func (f Format) IDSize() int {
	if f.IsUnicode() {
		return 8
	}
	return 4
}

// PageTrailerSize is the size of the trailer at the end of each page.
// The 4K trailer carries 8 unused bytes after the BID.
func (f Format) PageTrailerSize() int {
	switch {
	case f.Is4K():
		return 24
	case f.IsUnicode():
		return 16
	default:
		return 12
	}
}

// PageEntriesSize is the room for entries in a B-tree page. The page
// metadata follows; in 4K pages it is padded to the trailer.
func (f Format) PageEntriesSize() int {
	switch {
	case f.Is4K():
		return 4056
	case f.IsUnicode():
		return 488
	default:
		return 496
	}
}

// BlockTrailerSize is the size of the trailer after each block's data.
func (f Format) BlockTrailerSize() int {
	if f.IsUnicode() {
		return 16
	}
	return 12
}

// MaxBlockPayload is the largest data length of a single block.
func (f Format) MaxBlockPayload() int { return f.MaxBlockSize - f.BlockTrailerSize() }

// AlignedBlockSize is the on-disk footprint of a block holding cb bytes.
func (f Format) AlignedBlockSize(cb int) int {
	n := cb + f.BlockTrailerSize()
	return (n + f.BlockAlign - 1) / f.BlockAlign * f.BlockAlign
}

// BTEntrySize is the size of an intermediate B-tree entry {key, BREF}.
func (f Format) BTEntrySize() int { return 3 * f.IDSize() }

// NBTEntrySize is the size of a node B-tree leaf entry.
func (f Format) NBTEntrySize() int {
	if f.IsUnicode() {
		return 32
	}
	return 16
}

// BBTEntrySize is the size of a block B-tree leaf entry.
func (f Format) BBTEntrySize() int {
	if f.IsUnicode() {
		return 24
	}
	return 12
}

// SubnodeHeaderSize is the header size of SLBLOCKs and SIBLOCKs.
func (f Format) SubnodeHeaderSize() int {
	if f.IsUnicode() {
		return 8
	}
	return 4
}

// SLEntrySize is the size of a subnode leaf entry {nid, bidData, bidSub}.
func (f Format) SLEntrySize() int { return 3 * f.IDSize() }

// SIEntrySize is the size of a subnode intermediate entry {nid, bid}.
func (f Format) SIEntrySize() int { return 2 * f.IDSize() }

// XBlockHeaderSize is the header size of XBLOCKs and XXBLOCKs.
func (f Format) XBlockHeaderSize() int { return 8 }
