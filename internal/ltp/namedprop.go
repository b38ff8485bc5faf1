package ltp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hupe1980/pstgo/internal/ndb"
)

// Well-known property sets.
var (
	PSMAPI          = uuid.MustParse("00020328-0000-0000-c000-000000000046")
	PSPublicStrings = uuid.MustParse("00020329-0000-0000-c000-000000000046")
)

// Streams of the name-to-id map.
const (
	tagNameidGUIDs   Tag = 0x00020102
	tagNameidEntries Tag = 0x00030102
	tagNameidStrings Tag = 0x00040102

	namedIDBase = 0x8000
)

// NamedProperty maps a property id of 0x8000 or above to its name.
type NamedProperty struct {
	ID   uint16
	GUID uuid.UUID
	// LID is the numeric name. It is unset for string names.
	LID  uint32
	Name string
	kind bool
}

// IsString reports a string-named property.
func (n NamedProperty) IsString() bool { return n.kind }

func (n NamedProperty) String() string {
	if n.kind {
		return fmt.Sprintf("0x%04X {%s} %q", n.ID, n.GUID, n.Name)
	}
	return fmt.Sprintf("0x%04X {%s} 0x%X", n.ID, n.GUID, n.LID)
}

// NameMap resolves named property ids.
type NameMap struct {
	props []NamedProperty
}

// ReadNameMap decodes the name-to-id map node. A file without one yields
// an empty map.
func ReadNameMap(ctx context.Context, db *ndb.Database) (*NameMap, error) {
	node, err := db.Node(ctx, ndb.NIDNameToIDMap)
	if errors.Is(err, ndb.ErrNotFound) {
		return &NameMap{}, nil
	}
	if err != nil {
		return nil, err
	}
	heap, err := OpenHeap(ctx, db, node)
	if err != nil {
		return nil, err
	}
	pc, err := DecodePropertyContext(ctx, heap)
	if err != nil {
		return nil, err
	}

	stream := func(tag Tag) ([]byte, error) {
		v, err := pc.Get(ctx, tag)
		if errors.Is(err, ndb.ErrNotFound) {
			return nil, nil
		}
		return v.Raw, err
	}
	guids, err := stream(tagNameidGUIDs)
	if err != nil {
		return nil, err
	}
	entries, err := stream(tagNameidEntries)
	if err != nil {
		return nil, err
	}
	strs, err := stream(tagNameidStrings)
	if err != nil {
		return nil, err
	}
	return parseNameMap(guids, entries, strs)
}

func parseNameMap(guids, entries, strs []byte) (*NameMap, error) {
	if len(entries)%8 != 0 {
		return nil, corruptf("name map: entry stream of %d bytes", len(entries))
	}
	m := &NameMap{props: make([]NamedProperty, 0, len(entries)/8)}
	for off := 0; off < len(entries); off += 8 {
		e := entries[off:]
		id := binary.LittleEndian.Uint32(e)
		flags := binary.LittleEndian.Uint16(e[4:])
		np := NamedProperty{
			ID:   namedIDBase + binary.LittleEndian.Uint16(e[6:]),
			kind: flags&1 != 0,
		}

		switch g := int(flags >> 1); g {
		case 0:
			np.GUID = uuid.Nil
		case 1:
			np.GUID = PSMAPI
		case 2:
			np.GUID = PSPublicStrings
		default:
			at := (g - 3) * 16
			if at+16 > len(guids) {
				return nil, corruptf("name map: guid index %d of %d", g-3, len(guids)/16)
			}
			np.GUID = GUIDFromBytes(guids[at:])
		}

		if np.kind {
			at := int(id)
			if at+4 > len(strs) {
				return nil, corruptf("name map: string offset %d of %d", at, len(strs))
			}
			n := int(binary.LittleEndian.Uint32(strs[at:]))
			if n > len(strs)-at-4 {
				return nil, corruptf("name map: string of %d bytes at %d", n, at)
			}
			np.Name = DecodeUnicode(strs[at+4 : at+4+n])
		} else {
			np.LID = id
		}
		m.props = append(m.props, np)
	}
	sort.Slice(m.props, func(i, j int) bool { return m.props[i].ID < m.props[j].ID })
	return m, nil
}

// Len returns the number of named properties.
func (m *NameMap) Len() int { return len(m.props) }

// All returns the entries in id order.
func (m *NameMap) All() []NamedProperty { return m.props }

// Lookup returns the name of a property id.
func (m *NameMap) Lookup(id uint16) (NamedProperty, bool) {
	i := sort.Search(len(m.props), func(i int) bool { return m.props[i].ID >= id })
	if i < len(m.props) && m.props[i].ID == id {
		return m.props[i], true
	}
	return NamedProperty{}, false
}

// FindLID returns the property id of a numeric name.
func (m *NameMap) FindLID(guid uuid.UUID, lid uint32) (uint16, bool) {
	for _, p := range m.props {
		if !p.kind && p.GUID == guid && p.LID == lid {
			return p.ID, true
		}
	}
	return 0, false
}

// FindName returns the property id of a string name.
func (m *NameMap) FindName(guid uuid.UUID, name string) (uint16, bool) {
	for _, p := range m.props {
		if p.kind && p.GUID == guid && p.Name == name {
			return p.ID, true
		}
	}
	return 0, false
}
