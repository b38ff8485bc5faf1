package testutil

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/hupe1980/pstgo/internal/ndb"
)

const (
	tagDisplayName     = 0x3001001F
	tagRecordKey       = 0x0FF90102
	tagContentCount    = 0x36020003
	tagContentUnread   = 0x36030003
	tagSubfolders      = 0x360A000B
	tagContainerClass  = 0x3613001F
	tagMessageClass    = 0x001A001F
	tagSubject         = 0x0037001F
	tagMessageFlags    = 0x0E070003
	tagMessageSize     = 0x0E080003
	tagDeliveryTime    = 0x0E060040
	tagBody            = 0x1000001F
	tagEmailAddress    = 0x3003001F
	tagAddrType        = 0x3002001F
	tagRecipientType   = 0x0C150003
	tagSMTPAddress     = 0x39FE001F
	tagAttachMethod    = 0x37050003
	tagAttachLongName  = 0x3707001F
	tagAttachFilename  = 0x3704001F
	tagAttachSize      = 0x0E200003
	tagAttachMimeTag   = 0x370E001F
	tagAttachDataBin   = 0x37010102
	tagAttachDataObj   = 0x3701000D
	tagRenderingPos    = 0x370B0003
	tagNameidBuckets   = 0x00010003
	tagNameidGUIDs     = 0x00020102
	tagNameidEntries   = 0x00030102
	tagNameidStrings   = 0x00040102
	messageFlagRead    = 0x01
	messageFlagHasAtts = 0x10
)

var (
	psMAPI          = uuid.MustParse("00020328-0000-0000-c000-000000000046")
	psPublicStrings = uuid.MustParse("00020329-0000-0000-c000-000000000046")
)

// Mailbox describes a complete store.
type Mailbox struct {
	DisplayName string
	Root        *Folder
	NamedProps  []NamedProp
	StoreProps  []Prop
}

// Folder describes a folder and its content.
type Folder struct {
	Name       string
	Class      string
	Folders    []*Folder
	Messages   []*Message
	Associated []*Message
	Props      []Prop

	// NID is assigned by Encode.
	NID ndb.NID
}

// Message describes a message.
type Message struct {
	Subject     string
	Class       string
	Body        string
	Unread      bool
	Props       []Prop
	Recipients  []*Recipient
	Attachments []*Attachment

	NID ndb.NID
}

// Recipient describes one recipient table row.
type Recipient struct {
	Name  string
	Email string
	Type  int32
}

// Attachment describes a file or embedded message attachment.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
	Embedded *Message
	Props    []Prop

	NID ndb.NID
}

// NamedProp is one entry of the name-to-id map. Either LID or Name is set.
// ID is assigned by Encode.
type NamedProp struct {
	GUID uuid.UUID
	LID  uint32
	Name string

	ID uint16
}

// MinimalMailbox returns a root folder with an Inbox holding one message
// with one recipient and one five byte attachment.
func MinimalMailbox() *Mailbox {
	return &Mailbox{
		DisplayName: "Personal Folders",
		Root: &Folder{
			Name: "Root",
			Folders: []*Folder{{
				Name:  "Inbox",
				Class: "IPF.Note",
				Messages: []*Message{{
					Subject:    "Hello",
					Body:       "Hello, Alice.",
					Recipients: []*Recipient{{Name: "Alice", Email: "alice@example.com", Type: 1}},
					Attachments: []*Attachment{{
						Filename: "note.txt",
						MimeType: "text/plain",
						Data:     []byte("hello"),
					}},
				}},
			}},
		},
	}
}

// Build encodes the mailbox into a new container.
func (m *Mailbox) Build(f ndb.Format, crypt ndb.CryptMethod) *Image {
	b := NewBuilder(f, crypt)
	m.Encode(b)
	return b.Build()
}

// Encode adds all nodes of the mailbox to b.
func (m *Mailbox) Encode(b *Builder) {
	store := NewPropertyContext().
		Add(tagDisplayName, Unicode(m.DisplayName)).
		Add(tagRecordKey, make([]byte, 16))
	store.Props = append(store.Props, m.StoreProps...)
	data, sub := store.Encode(b).Store(b)
	b.AddNode(ndb.NIDMessageStore, data, sub, 0)

	if len(m.NamedProps) > 0 {
		data, sub := m.nameMap().Encode(b).Store(b)
		b.AddNode(ndb.NIDNameToIDMap, data, sub, 0)
	}

	if m.Root != nil {
		m.Root.NID = ndb.NIDRootFolder
		encodeFolder(b, m.Root, ndb.NIDRootFolder)
	}
}

func (m *Mailbox) nameMap() *PropertyContext {
	var guids, entries, strs []byte
	custom := map[uuid.UUID]int{}

	for i := range m.NamedProps {
		np := &m.NamedProps[i]
		np.ID = 0x8000 + uint16(i)

		var wGuid uint16
		switch np.GUID {
		case psMAPI:
			wGuid = 1
		case psPublicStrings:
			wGuid = 2
		default:
			idx, ok := custom[np.GUID]
			if !ok {
				idx = len(custom)
				custom[np.GUID] = idx
				guids = append(guids, GUID(np.GUID)...)
			}
			wGuid = uint16(3 + idx)
		}

		id := np.LID
		kind := uint16(0)
		if np.Name != "" {
			kind = 1
			id = uint32(len(strs))
			s := Unicode(np.Name)
			strs = binary.LittleEndian.AppendUint32(strs, uint32(len(s)))
			strs = append(strs, s...)
			for len(strs)%4 != 0 {
				strs = append(strs, 0)
			}
		}
		entries = binary.LittleEndian.AppendUint32(entries, id)
		entries = binary.LittleEndian.AppendUint16(entries, wGuid<<1|kind)
		entries = binary.LittleEndian.AppendUint16(entries, uint16(i))
	}

	return NewPropertyContext().
		Add(tagNameidBuckets, Int32(251)).
		Add(tagNameidGUIDs, guids).
		Add(tagNameidEntries, entries).
		Add(tagNameidStrings, strs)
}

var folderColumns = []uint32{tagDisplayName, tagContentCount, tagContentUnread, tagSubfolders, tagContainerClass}

var contentsColumns = []uint32{tagSubject, tagMessageClass, tagMessageFlags, tagMessageSize, tagDeliveryTime}

func encodeFolder(b *Builder, f *Folder, parent ndb.NID) {
	unread := 0
	for _, m := range f.Messages {
		m.NID = b.LocalNID(ndb.NIDTypeNormalMessage)
		if m.Unread {
			unread++
		}
	}
	for _, m := range f.Associated {
		m.NID = b.LocalNID(ndb.NIDTypeAssocMessage)
	}
	for _, c := range f.Folders {
		c.NID = b.LocalNID(ndb.NIDTypeNormalFolder)
	}

	pc := NewPropertyContext().
		Add(tagDisplayName, Unicode(f.Name)).
		Add(tagContentCount, Int32(int32(len(f.Messages)))).
		Add(tagContentUnread, Int32(int32(unread))).
		Add(tagSubfolders, Bool(len(f.Folders) > 0))
	if f.Class != "" {
		pc.Add(tagContainerClass, Unicode(f.Class))
	}
	pc.Props = append(pc.Props, f.Props...)
	data, sub := pc.Encode(b).Store(b)
	b.AddNode(f.NID, data, sub, parent)

	hierarchy := NewTableContext(folderColumns...)
	for _, c := range f.Folders {
		vals := map[uint32][]byte{
			tagDisplayName:   Unicode(c.Name),
			tagContentCount:  Int32(int32(len(c.Messages))),
			tagContentUnread: Int32(0),
			tagSubfolders:    Bool(len(c.Folders) > 0),
		}
		if c.Class != "" {
			vals[tagContainerClass] = Unicode(c.Class)
		}
		hierarchy.AddRow(uint32(c.NID), vals)
	}
	data, sub = hierarchy.Encode(b).Store(b)
	b.AddNode(f.NID.WithType(ndb.NIDTypeHierarchyTable), data, sub, f.NID)

	for _, t := range []struct {
		typ  ndb.NIDType
		msgs []*Message
	}{
		{ndb.NIDTypeContentsTable, f.Messages},
		{ndb.NIDTypeAssocContentsTable, f.Associated},
	} {
		contents := NewTableContext(contentsColumns...)
		for _, m := range t.msgs {
			contents.AddRow(uint32(m.NID), map[uint32][]byte{
				tagSubject:      Unicode(m.Subject),
				tagMessageClass: Unicode(m.class()),
				tagMessageFlags: Int32(m.flags()),
			})
		}
		data, sub = contents.Encode(b).Store(b)
		b.AddNode(f.NID.WithType(t.typ), data, sub, f.NID)
	}

	for _, m := range append(append([]*Message(nil), f.Messages...), f.Associated...) {
		data, sub := encodeMessage(b, m)
		b.AddNode(m.NID, data, sub, f.NID)
	}
	for _, c := range f.Folders {
		encodeFolder(b, c, f.NID)
	}
}

func (m *Message) class() string {
	if m.Class == "" {
		return "IPM.Note"
	}
	return m.Class
}

func (m *Message) flags() int32 {
	var flags int32
	if !m.Unread {
		flags |= messageFlagRead
	}
	if len(m.Attachments) > 0 {
		flags |= messageFlagHasAtts
	}
	return flags
}

func encodeMessage(b *Builder, m *Message) (data, sub ndb.BID) {
	pc := NewPropertyContext().
		Add(tagMessageClass, Unicode(m.class())).
		Add(tagSubject, Unicode(m.Subject)).
		Add(tagMessageFlags, Int32(m.flags()))
	if m.Body != "" {
		pc.Add(tagBody, Unicode(m.Body))
	}
	pc.Props = append(pc.Props, m.Props...)

	recipients := NewTableContext(tagDisplayName, tagEmailAddress, tagAddrType, tagRecipientType, tagSMTPAddress)
	for i, r := range m.Recipients {
		recipients.AddRow(uint32(i), map[uint32][]byte{
			tagDisplayName:   Unicode(r.Name),
			tagEmailAddress:  Unicode(r.Email),
			tagAddrType:      Unicode("SMTP"),
			tagRecipientType: Int32(r.Type),
			tagSMTPAddress:   Unicode(r.Email),
		})
	}
	rd, rs := recipients.Encode(b).Store(b)
	extra := []ndb.SubnodeEntry{{NID: ndb.NIDRecipientTable, DataBID: rd, SubnodeBID: rs}}

	if len(m.Attachments) > 0 {
		table := NewTableContext(tagAttachSize, tagAttachLongName, tagAttachMethod, tagRenderingPos)
		for _, a := range m.Attachments {
			a.NID = b.LocalNID(ndb.NIDTypeAttachment)
			ad, as := encodeAttachment(b, a)
			extra = append(extra, ndb.SubnodeEntry{NID: a.NID, DataBID: ad, SubnodeBID: as})
			table.AddRow(uint32(a.NID), map[uint32][]byte{
				tagAttachSize:     Int32(int32(len(a.Data))),
				tagAttachLongName: Unicode(a.Filename),
				tagAttachMethod:   Int32(a.method()),
				tagRenderingPos:   Int32(-1),
			})
		}
		td, ts := table.Encode(b).Store(b)
		extra = append(extra, ndb.SubnodeEntry{NID: ndb.NIDAttachmentTable, DataBID: td, SubnodeBID: ts})
	}

	return pc.Encode(b).Store(b, extra...)
}

func (a *Attachment) method() int32 {
	if a.Embedded != nil {
		return 5
	}
	return 1
}

func encodeAttachment(b *Builder, a *Attachment) (data, sub ndb.BID) {
	pc := NewPropertyContext().
		Add(tagAttachMethod, Int32(a.method())).
		Add(tagAttachSize, Int32(int32(len(a.Data))))
	if a.Filename != "" {
		pc.Add(tagAttachLongName, Unicode(a.Filename))
		pc.Add(tagAttachFilename, Unicode(a.Filename))
		pc.Add(tagDisplayName, Unicode(a.Filename))
	}
	if a.MimeType != "" {
		pc.Add(tagAttachMimeTag, Unicode(a.MimeType))
	}
	pc.Props = append(pc.Props, a.Props...)

	var extra []ndb.SubnodeEntry
	if a.Embedded != nil {
		nid := b.LocalNID(ndb.NIDTypeNormalMessage)
		a.Embedded.NID = nid
		md, ms := encodeMessage(b, a.Embedded)
		extra = append(extra, ndb.SubnodeEntry{NID: nid, DataBID: md, SubnodeBID: ms})
		pc.Add(tagAttachDataObj, Object(uint32(nid), 0))
	} else {
		pc.Add(tagAttachDataBin, a.Data)
	}
	return pc.Encode(b).Store(b, extra...)
}
