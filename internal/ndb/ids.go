package ndb

import "fmt"

// NID identifies a node. The low 5 bits hold the node type, the rest an index.
type NID uint32

// NIDType is the 5-bit type tag of a NID.
type NIDType uint8

const (
	NIDTypeHID                  NIDType = 0x00
	NIDTypeInternal             NIDType = 0x01
	NIDTypeNormalFolder         NIDType = 0x02
	NIDTypeSearchFolder         NIDType = 0x03
	NIDTypeNormalMessage        NIDType = 0x04
	NIDTypeAttachment           NIDType = 0x05
	NIDTypeSearchUpdateQueue    NIDType = 0x06
	NIDTypeSearchCriteriaObject NIDType = 0x07
	NIDTypeAssocMessage         NIDType = 0x08
	NIDTypeContentsTableIndex   NIDType = 0x0A
	NIDTypeReceiveFolderTable   NIDType = 0x0B
	NIDTypeOutgoingQueueTable   NIDType = 0x0C
	NIDTypeHierarchyTable       NIDType = 0x0D
	NIDTypeContentsTable        NIDType = 0x0E
	NIDTypeAssocContentsTable   NIDType = 0x0F
	NIDTypeSearchContentsTable  NIDType = 0x10
	NIDTypeAttachmentTable      NIDType = 0x11
	NIDTypeRecipientTable       NIDType = 0x12
	NIDTypeSearchTableIndex     NIDType = 0x13
	NIDTypeLTP                  NIDType = 0x1F
)

var nidTypeNames = map[NIDType]string{
	NIDTypeHID:                  "hid",
	NIDTypeInternal:             "internal",
	NIDTypeNormalFolder:         "folder",
	NIDTypeSearchFolder:         "search-folder",
	NIDTypeNormalMessage:        "message",
	NIDTypeAttachment:           "attachment",
	NIDTypeSearchUpdateQueue:    "search-update-queue",
	NIDTypeSearchCriteriaObject: "search-criteria",
	NIDTypeAssocMessage:         "associated-message",
	NIDTypeContentsTableIndex:   "contents-table-index",
	NIDTypeReceiveFolderTable:   "receive-folder-table",
	NIDTypeOutgoingQueueTable:   "outgoing-queue-table",
	NIDTypeHierarchyTable:       "hierarchy-table",
	NIDTypeContentsTable:        "contents-table",
	NIDTypeAssocContentsTable:   "associated-contents-table",
	NIDTypeSearchContentsTable:  "search-contents-table",
	NIDTypeAttachmentTable:      "attachment-table",
	NIDTypeRecipientTable:       "recipient-table",
	NIDTypeSearchTableIndex:     "search-table-index",
	NIDTypeLTP:                  "ltp",
}

func (t NIDType) String() string {
	if s, ok := nidTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type-0x%02x", uint8(t))
}

// Well-known NIDs.
const (
	NIDMessageStore    NID = 0x21
	NIDNameToIDMap     NID = 0x61
	NIDRootFolder      NID = 0x122
	NIDAttachmentTable NID = 0x671
	NIDRecipientTable  NID = 0x692
)

// MakeNID builds a NID from a type and an index.
func MakeNID(t NIDType, index uint32) NID {
	return NID(index<<5 | uint32(t)&0x1F)
}

// Type returns the node type.
func (n NID) Type() NIDType { return NIDType(n & 0x1F) }

// Index returns the upper 27 bits.
func (n NID) Index() uint32 { return uint32(n) >> 5 }

// WithType returns the NID with its type tag replaced. Folder tables are
// addressed this way from the folder NID.
func (n NID) WithType(t NIDType) NID { return MakeNID(t, n.Index()) }

func (n NID) String() string { return fmt.Sprintf("0x%X", uint32(n)) }

// BID identifies a block. Bit 1 marks internal blocks (XBLOCK, XXBLOCK,
// SLBLOCK, SIBLOCK); bit 0 is reserved and ignored on lookup.
type BID uint64

// IsInternal reports whether the block holds structure rather than data.
func (b BID) IsInternal() bool { return b&0x2 != 0 }

func (b BID) lookupKey() BID { return b &^ 0x1 }

func (b BID) String() string { return fmt.Sprintf("0x%X", uint64(b)) }

// BREF is a block or page reference: its id and absolute file offset.
type BREF struct {
	BID BID
	IB  uint64
}
