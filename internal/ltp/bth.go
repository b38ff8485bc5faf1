package ltp

import (
	"encoding/binary"
	"sort"
)

const (
	bthType      = 0xB5
	maxBTHLevels = 8
)

// Record is one BTH leaf record. Both slices alias heap memory.
type Record struct {
	Key  []byte
	Data []byte
}

// BTH is a B-tree stored in heap allocations.
type BTH struct {
	heap     *Heap
	keySize  int
	dataSize int
	levels   int
	root     HID
}

// OpenBTH decodes the BTH header at hid.
func OpenBTH(heap *Heap, hid HID) (*BTH, error) {
	hdr, err := heap.Get(hid)
	if err != nil {
		return nil, err
	}
	if len(hdr) < 8 || hdr[0] != bthType {
		return nil, corruptf("bth header at %s", hid)
	}
	b := &BTH{
		heap:     heap,
		keySize:  int(hdr[1]),
		dataSize: int(hdr[2]),
		levels:   int(hdr[3]),
		root:     HID(binary.LittleEndian.Uint32(hdr[4:])),
	}
	switch b.keySize {
	case 2, 4, 8, 16:
	default:
		return nil, corruptf("bth at %s: key size %d", hid, b.keySize)
	}
	if b.dataSize < 1 || b.dataSize > 32 {
		return nil, corruptf("bth at %s: data size %d", hid, b.dataSize)
	}
	if b.levels > maxBTHLevels {
		return nil, corruptf("bth at %s: %d index levels", hid, b.levels)
	}
	return b, nil
}

// KeySize returns cbKey.
func (b *BTH) KeySize() int { return b.keySize }

// DataSize returns cbEnt.
func (b *BTH) DataSize() int { return b.dataSize }

// Empty reports a tree without records.
func (b *BTH) Empty() bool { return b.root == 0 }

func (b *BTH) node(hid HID, level int) ([]byte, int, error) {
	data, err := b.heap.Get(hid)
	if err != nil {
		return nil, 0, err
	}
	size := b.keySize + b.dataSize
	if level > 0 {
		size = b.keySize + 4
	}
	if len(data)%size != 0 {
		return nil, 0, corruptf("bth node %s: %d bytes is not a multiple of %d", hid, len(data), size)
	}
	return data, size, nil
}

// Records returns all leaf records in tree order.
func (b *BTH) Records() ([]Record, error) {
	if b.root == 0 {
		return nil, nil
	}
	var out []Record
	// A well-formed tree cannot hold more records than fit in its heap.
	limit := b.heap.size() / (b.keySize + b.dataSize)
	if err := b.collect(b.root, b.levels, limit, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BTH) collect(hid HID, level, limit int, out *[]Record) error {
	data, size, err := b.node(hid, level)
	if err != nil {
		return err
	}
	for off := 0; off < len(data); off += size {
		e := data[off : off+size]
		if level == 0 {
			if len(*out) >= limit {
				return corruptf("bth node %s: more records than the heap can hold", hid)
			}
			*out = append(*out, Record{Key: e[:b.keySize], Data: e[b.keySize:]})
			continue
		}
		if err := b.collect(HID(binary.LittleEndian.Uint32(e[b.keySize:])), level-1, limit, out); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds the record with the given key by binary search.
func (b *BTH) Lookup(key []byte) (Record, error) {
	if len(key) != b.keySize {
		return Record{}, corruptf("bth key of %d bytes, want %d", len(key), b.keySize)
	}
	if b.root == 0 {
		return Record{}, notFoundf("bth key %x", key)
	}
	want := keyValue(key)

	hid := b.root
	for level := b.levels; ; level-- {
		data, size, err := b.node(hid, level)
		if err != nil {
			return Record{}, err
		}
		n := len(data) / size
		i := sort.Search(n, func(i int) bool {
			return keyValue(data[i*size:i*size+b.keySize]) > want
		})
		if i == 0 {
			return Record{}, notFoundf("bth key %x", key)
		}
		e := data[(i-1)*size : i*size]
		if level == 0 {
			if keyValue(e[:b.keySize]) != want {
				return Record{}, notFoundf("bth key %x", key)
			}
			return Record{Key: e[:b.keySize], Data: e[b.keySize:]}, nil
		}
		hid = HID(binary.LittleEndian.Uint32(e[b.keySize:]))
	}
}

// keyValue orders little-endian keys of up to 8 bytes. Longer keys are
// compared by their first 8 bytes.
func keyValue(k []byte) uint64 {
	if len(k) > 8 {
		k = k[:8]
	}
	var v uint64
	for i := len(k) - 1; i >= 0; i-- {
		v = v<<8 | uint64(k[i])
	}
	return v
}
