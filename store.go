package pstgo

import (
	"context"
	"encoding/binary"
)

// MessageStore holds the store-wide properties of node 0x21.
type MessageStore struct {
	element
}

// RecordKey returns the store's record key, the provider UID that prefixes
// its entry ids.
func (s *MessageStore) RecordKey(ctx context.Context) []byte {
	return s.Bytes(ctx, TagRecordKey)
}

// IPMSubtreeEntryID returns the entry id of the top of the visible
// folder tree.
func (s *MessageStore) IPMSubtreeEntryID(ctx context.Context) []byte {
	return s.Bytes(ctx, TagIPMSubtreeEntryID)
}

// IPMSubtree resolves the top of the visible folder tree. Entry ids end
// with the folder NID.
func (s *MessageStore) IPMSubtree(ctx context.Context) (*Folder, error) {
	return s.entryFolder(ctx, TagIPMSubtreeEntryID)
}

// Wastebasket resolves the deleted items folder.
func (s *MessageStore) Wastebasket(ctx context.Context) (*Folder, error) {
	return s.entryFolder(ctx, TagIPMWastebasketEntryID)
}

func (s *MessageStore) entryFolder(ctx context.Context, tag PropertyTag) (*Folder, error) {
	p, err := s.Property(ctx, tag)
	if err != nil {
		return nil, err
	}
	nid, ok := EntryIDNID(p.Bytes())
	if !ok {
		return nil, newError(ErrorKindCorrupt, "store.entryid", s.nid, nil)
	}
	return s.file.Folder(ctx, nid)
}

// EntryIDNID extracts the NID from a 24-byte PST entry id: 4 flag bytes,
// the 16-byte provider UID and the little-endian NID.
func EntryIDNID(b []byte) (uint32, bool) {
	if len(b) != 24 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[20:]), true
}
