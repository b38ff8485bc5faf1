package pstgo

import (
	"context"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/internal/rtf"
)

// Importance levels (TagImportance).
const (
	ImportanceLow    = 0
	ImportanceNormal = 1
	ImportanceHigh   = 2
)

// Message is a top-level or embedded message. Its recipient and
// attachment tables are subnodes of the message node.
type Message struct {
	element
	embedded bool
}

// IsEmbedded reports a message stored inside an attachment.
func (m *Message) IsEmbedded() bool { return m.embedded }

// MessageClass returns the message class, e.g. "IPM.Note".
func (m *Message) MessageClass(ctx context.Context) string {
	return m.String(ctx, TagMessageClass)
}

// Subject returns the subject with its normalized prefix marker removed.
// A stored subject may start with 0x01 followed by a length character.
func (m *Message) Subject(ctx context.Context) string {
	return normalizeSubject(m.String(ctx, TagSubject))
}

func normalizeSubject(s string) string {
	if !strings.HasPrefix(s, "\x01") {
		return s
	}
	s = s[1:]
	if s == "" {
		return s
	}
	_, n := utf8.DecodeRuneInString(s)
	return s[n:]
}

// ConversationTopic returns the thread topic.
func (m *Message) ConversationTopic(ctx context.Context) string {
	return m.String(ctx, TagConversationTopic)
}

// SenderName returns the sender display name, falling back to the
// represented sender.
func (m *Message) SenderName(ctx context.Context) string {
	if s := m.String(ctx, TagSenderName); s != "" {
		return s
	}
	return m.String(ctx, TagSentRepresentingName)
}

// SenderEmail returns the sender address in its native address type.
func (m *Message) SenderEmail(ctx context.Context) string {
	return m.String(ctx, TagSenderEmailAddress)
}

// SenderAddressType returns the sender address type, e.g. "SMTP" or "EX".
func (m *Message) SenderAddressType(ctx context.Context) string {
	return m.String(ctx, TagSenderAddrType)
}

// SenderSMTPAddress returns the sender SMTP address. Exchange senders
// carry it in a separate property.
func (m *Message) SenderSMTPAddress(ctx context.Context) string {
	if s := m.String(ctx, TagSenderSMTPAddress); s != "" {
		return s
	}
	if strings.EqualFold(m.SenderAddressType(ctx), "SMTP") {
		return m.SenderEmail(ctx)
	}
	return ""
}

// SubmitTime returns the client submit time, zero when absent.
func (m *Message) SubmitTime(ctx context.Context) time.Time {
	return m.Time(ctx, TagClientSubmitTime)
}

// DeliveryTime returns the delivery time, zero when absent.
func (m *Message) DeliveryTime(ctx context.Context) time.Time {
	return m.Time(ctx, TagMessageDeliveryTime)
}

// Date returns the submit time, or the delivery time for messages never
// submitted.
func (m *Message) Date(ctx context.Context) time.Time {
	if t := m.SubmitTime(ctx); !t.IsZero() {
		return t
	}
	return m.DeliveryTime(ctx)
}

// InternetMessageID returns the Message-ID header value.
func (m *Message) InternetMessageID(ctx context.Context) string {
	return m.String(ctx, TagInternetMessageID)
}

// Headers returns the raw transport headers.
func (m *Message) Headers(ctx context.Context) string {
	return m.String(ctx, TagTransportHeaders)
}

// Body returns the plain text body.
func (m *Message) Body(ctx context.Context) string {
	return m.String(ctx, TagBody)
}

// BodyHTML returns the HTML body. It is stored as binary in the
// message's internet code page.
func (m *Message) BodyHTML(ctx context.Context) string {
	p, err := m.Property(ctx, TagBodyHTML)
	if err != nil {
		return ""
	}
	if p.Type() != TypeBinary {
		s, _ := p.Text()
		return s
	}
	cp := int(m.Int32(ctx, TagInternetCodePage))
	if cp == 0 {
		cp = 65001
	}
	return ltp.DecodeString8(p.Bytes(), cp)
}

// BodyRTF returns the decompressed RTF body. A message without one fails
// with ErrNotFound; a damaged stream fails with ErrCorrupt.
func (m *Message) BodyRTF(ctx context.Context) ([]byte, error) {
	p, err := m.Property(ctx, TagRTFCompressed)
	if err != nil {
		return nil, err
	}
	out, err := rtf.DecompressVerify(p.Bytes())
	if err != nil {
		return nil, translateError("message.rtf", m.nid, err)
	}
	return out, nil
}

// Flags returns the message flags (MessageFlag*).
func (m *Message) Flags(ctx context.Context) uint32 {
	return uint32(m.Int32(ctx, TagMessageFlags))
}

// IsRead reports the read flag.
func (m *Message) IsRead(ctx context.Context) bool {
	return m.Flags(ctx)&MessageFlagRead != 0
}

// HasAttachments reports the attachment flag, checking both the flags
// and the explicit property.
func (m *Message) HasAttachments(ctx context.Context) bool {
	return m.Flags(ctx)&MessageFlagHasAttach != 0 || m.Bool(ctx, TagHasAttachments)
}

// Importance returns the importance, ImportanceNormal when absent.
func (m *Message) Importance(ctx context.Context) int {
	p, err := m.Property(ctx, TagImportance)
	if err != nil {
		return ImportanceNormal
	}
	v, err := p.Int()
	if err != nil {
		return ImportanceNormal
	}
	return int(v)
}

// Sensitivity returns the sensitivity level.
func (m *Message) Sensitivity(ctx context.Context) int {
	return int(m.Int32(ctx, TagSensitivity))
}

// DisplayTo returns the display list of To recipients.
func (m *Message) DisplayTo(ctx context.Context) string { return m.String(ctx, TagDisplayTo) }

// DisplayCc returns the display list of Cc recipients.
func (m *Message) DisplayCc(ctx context.Context) string { return m.String(ctx, TagDisplayCc) }

// DisplayBcc returns the display list of Bcc recipients.
func (m *Message) DisplayBcc(ctx context.Context) string { return m.String(ctx, TagDisplayBcc) }

// Size returns the stored message size in bytes.
func (m *Message) Size(ctx context.Context) int64 {
	return m.Int64(ctx, TagMessageSize)
}

// Recipients iterates the recipient table. Recipients are table rows and
// read their properties from the row.
func (m *Message) Recipients(ctx context.Context) iter.Seq2[*Recipient, error] {
	tc, err := m.localTable(ctx, ndb.NIDRecipientTable)
	if tc == nil {
		return emptySeq[Recipient](err)
	}
	return rows(ctx, m.file, m.gen, "recipients", tc, func(row *ltp.Row) (*Recipient, error) {
		return &Recipient{element: element{
			file:  m.file,
			gen:   m.gen,
			kind:  KindRecipient,
			node:  m.node,
			nid:   ndb.NID(row.ID),
			props: rowProps{row: row},
		}}, nil
	})
}

// Attachments iterates the attachment table. Each row id names the
// attachment subnode holding the attachment properties.
func (m *Message) Attachments(ctx context.Context) iter.Seq2[*Attachment, error] {
	tc, err := m.localTable(ctx, ndb.NIDAttachmentTable)
	if tc == nil {
		return emptySeq[Attachment](err)
	}
	return rows(ctx, m.file, m.gen, "attachments", tc, func(row *ltp.Row) (*Attachment, error) {
		node, err := m.file.db.SubnodeOf(ctx, m.node, ndb.NID(row.ID))
		if err != nil {
			return nil, ndb.Dangling(err, "attachment row %#x", row.ID)
		}
		e, err := m.file.newElement(ctx, m.gen, KindAttachment, node)
		if err != nil {
			return nil, err
		}
		return &Attachment{element: e}, nil
	})
}

// AttachmentCount returns the number of attachment rows.
func (m *Message) AttachmentCount(ctx context.Context) (int, error) {
	tc, err := m.localTable(ctx, ndb.NIDAttachmentTable)
	if tc == nil {
		return 0, err
	}
	return tc.RowCount(), nil
}

func (m *Message) localTable(ctx context.Context, nid ndb.NID) (*ltp.TableContext, error) {
	if err := m.check("message.table"); err != nil {
		return nil, err
	}
	tc, err := m.table(ctx, nid, true)
	if err != nil {
		return nil, translateError("message.table", nid, err)
	}
	return tc, nil
}
