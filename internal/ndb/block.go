package ndb

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/pstgo/internal/cache"
	"github.com/hupe1980/pstgo/internal/conv"
	"github.com/hupe1980/pstgo/internal/hash"
	"github.com/klauspost/compress/zlib"
)

const (
	btypeXBlock   = 0x01
	btypeSubnodes = 0x02
)

// BlockEntry is a block B-tree leaf record.
type BlockEntry struct {
	BID      BID
	Offset   uint64
	Size     uint16
	RefCount uint32
	// InflatedSize is the decompressed size of a 4K-format block. It equals
	// Size for uncompressed blocks and in the other formats.
	InflatedSize uint16
}

// Compressed reports whether the stored bytes are zlib compressed.
func (e BlockEntry) Compressed() bool { return e.InflatedSize != e.Size }

func (f Format) parseBlockEntry(e []byte) BlockEntry {
	ref := f.brefAt(e)
	be := BlockEntry{BID: ref.BID, Offset: ref.IB}
	switch {
	case f.Is4K():
		be.Size = binary.LittleEndian.Uint16(e[16:])
		be.InflatedSize = binary.LittleEndian.Uint16(e[18:])
		be.RefCount = binary.LittleEndian.Uint32(e[20:])
	case f.IsUnicode():
		be.Size = binary.LittleEndian.Uint16(e[16:])
		be.RefCount = uint32(binary.LittleEndian.Uint16(e[18:]))
	default:
		be.Size = binary.LittleEndian.Uint16(e[8:])
		be.RefCount = uint32(binary.LittleEndian.Uint16(e[10:]))
	}
	if be.InflatedSize == 0 {
		be.InflatedSize = be.Size
	}
	return be
}

// ResolveBlockEntry looks up bid in the block B-tree.
func (db *Database) ResolveBlockEntry(ctx context.Context, bid BID) (BlockEntry, error) {
	key := bid.lookupKey()
	if v, ok := db.blocks.Load(key); ok {
		return v.(BlockEntry), nil
	}

	e, err := db.lookup(ctx, db.header.BBTRoot, PageTypeBBT, uint64(key))
	if err != nil {
		if err == ErrNotFound {
			return BlockEntry{}, fmt.Errorf("%w: block %s", ErrNotFound, bid)
		}
		return BlockEntry{}, err
	}

	entry := db.header.Format.parseBlockEntry(e)
	db.blocks.Store(key, entry)
	return entry, nil
}

// WalkBlocks calls fn for every block B-tree entry in BID order.
func (db *Database) WalkBlocks(ctx context.Context, fn func(BlockEntry) error) error {
	f := db.header.Format
	return db.walk(ctx, db.header.BBTRoot, PageTypeBBT, func(e []byte) error {
		return fn(f.parseBlockEntry(e))
	})
}

// readBlock returns the validated, decrypted and inflated bytes of one
// block. The returned slice is shared and must not be modified.
func (db *Database) readBlock(ctx context.Context, bid BID) ([]byte, error) {
	if bid == 0 {
		return nil, corruptf("null block reference")
	}
	entry, err := db.ResolveBlockEntry(ctx, bid)
	if err != nil {
		return nil, Dangling(err, "dangling block reference")
	}

	return db.cached(ctx, cache.CacheKindBlock, uint64(bid.lookupKey()), func() ([]byte, error) {
		return db.loadBlock(ctx, entry)
	})
}

func (db *Database) loadBlock(ctx context.Context, entry BlockEntry) ([]byte, error) {
	f := db.header.Format
	cb := int(entry.Size)
	if cb > f.MaxBlockPayload() {
		return nil, corruptf("block %s: size %d exceeds %d", entry.BID, cb, f.MaxBlockPayload())
	}
	if entry.Offset%uint64(f.BlockAlign) != 0 {
		return nil, corruptf("block %s at unaligned offset %d", entry.BID, entry.Offset)
	}

	raw := make([]byte, f.AlignedBlockSize(cb))
	if err := db.readAt(ctx, cache.CacheKindBlock, raw, entry.Offset); err != nil {
		return nil, err
	}
	if err := db.checkBlockTrailer(raw, entry); err != nil {
		return nil, err
	}

	data := raw[:cb:cb]
	if entry.BID.IsInternal() {
		return data, nil
	}
	Decode(db.header.Crypt, data, entry.BID)

	if f.Is4K() && entry.Compressed() {
		return inflate(data, int(entry.InflatedSize), entry.BID)
	}
	return data, nil
}

func (db *Database) checkBlockTrailer(raw []byte, entry BlockEntry) error {
	f := db.header.Format
	t := raw[len(raw)-f.BlockTrailerSize():]

	cb := binary.LittleEndian.Uint16(t)
	sig := binary.LittleEndian.Uint16(t[2:])
	var crc uint32
	var bid BID
	if f.IsUnicode() {
		crc = binary.LittleEndian.Uint32(t[4:])
		bid = BID(binary.LittleEndian.Uint64(t[8:]))
	} else {
		bid = BID(binary.LittleEndian.Uint32(t[4:]))
		crc = binary.LittleEndian.Uint32(t[8:])
	}

	if cb != entry.Size {
		return corruptf("block %s: trailer size %d, want %d", entry.BID, cb, entry.Size)
	}
	if bid.lookupKey() != entry.BID.lookupKey() {
		return corruptf("block %s: trailer bid %s", entry.BID, bid)
	}
	if !db.opts.VerifyChecksums {
		return nil
	}
	if sig != 0 {
		if want := Signature(entry.Offset, bid); sig != want {
			return corruptf("block %s: signature %04x, want %04x", entry.BID, sig, want)
		}
	}
	if crc != 0 {
		if got := hash.CRC(raw[:cb]); got != crc {
			return corruptf("block %s: checksum %08x, computed %08x", entry.BID, crc, got)
		}
	}
	return nil
}

func inflate(data []byte, size int, bid BID) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, corruptf("block %s: %v", bid, err)
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, corruptf("block %s: inflate to %d bytes: %v", bid, size, err)
	}
	return out, nil
}

// ResolveBlocks returns the leaf data blocks of bid in order. An external
// BID yields itself; an XBLOCK or XXBLOCK is flattened.
func (db *Database) ResolveBlocks(ctx context.Context, bid BID) ([][]byte, error) {
	data, err := db.readBlock(ctx, bid)
	if err != nil {
		return nil, err
	}
	if !bid.IsInternal() {
		return [][]byte{data}, nil
	}

	var (
		leaves [][]byte
		total  int64
	)
	if err := db.flatten(ctx, bid, data, 0, &leaves, &total); err != nil {
		return nil, err
	}
	return leaves, nil
}

// flatten appends the leaves below the XBLOCK or XXBLOCK in data. want is
// the required level, zero at the top of the tree.
func (db *Database) flatten(ctx context.Context, bid BID, data []byte, want int, leaves *[][]byte, total *int64) error {
	f := db.header.Format
	if len(data) < f.XBlockHeaderSize() {
		return corruptf("xblock %s: %d bytes", bid, len(data))
	}
	if data[0] != btypeXBlock {
		return corruptf("block %s: type %#x is not a data tree", bid, data[0])
	}
	level := int(data[1])
	if level < 1 || level > 2 || (want != 0 && level != want) {
		return corruptf("xblock %s: level %d", bid, level)
	}
	count := int(binary.LittleEndian.Uint16(data[2:]))
	lcbTotal := int64(binary.LittleEndian.Uint32(data[4:]))
	idSize := f.IDSize()
	if f.XBlockHeaderSize()+count*idSize > len(data) {
		return corruptf("xblock %s: %d entries overflow %d bytes", bid, count, len(data))
	}

	start := *total
	for i := 0; i < count; i++ {
		off := f.XBlockHeaderSize() + i*idSize
		child := BID(f.keyAt(data[off:]))

		if level == 2 {
			if !child.IsInternal() {
				return corruptf("xxblock %s: entry %d is external block %s", bid, i, child)
			}
			sub, err := db.readBlock(ctx, child)
			if err != nil {
				return err
			}
			if err := db.flatten(ctx, child, sub, 1, leaves, total); err != nil {
				return err
			}
			continue
		}

		if child.IsInternal() {
			return corruptf("xblock %s: entry %d is internal block %s", bid, i, child)
		}
		if len(*leaves) >= db.opts.Limits.MaxDataBlocks {
			return corruptf("xblock %s: more than %d data blocks", bid, db.opts.Limits.MaxDataBlocks)
		}
		leaf, err := db.readBlock(ctx, child)
		if err != nil {
			return err
		}
		*leaves = append(*leaves, leaf)
		*total += int64(len(leaf))
		if *total > db.opts.Limits.MaxNodeSize {
			return corruptf("xblock %s: data exceeds %d bytes", bid, db.opts.Limits.MaxNodeSize)
		}
	}

	if got := *total - start; got != lcbTotal {
		return corruptf("xblock %s: leaves hold %d bytes, header declares %d", bid, got, lcbTotal)
	}
	return nil
}

// ResolveBlock returns the data of bid, concatenating the leaves of a data
// tree in entry order.
func (db *Database) ResolveBlock(ctx context.Context, bid BID) ([]byte, error) {
	leaves, err := db.ResolveBlocks(ctx, bid)
	if err != nil {
		return nil, err
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}

	var total int64
	for _, l := range leaves {
		total += int64(len(l))
	}
	n, err := conv.Int64ToInt(total)
	if err != nil {
		return nil, corruptf("block %s: %v", bid, err)
	}
	out := make([]byte, 0, n)
	for _, l := range leaves {
		out = append(out, l...)
	}
	return out, nil
}
