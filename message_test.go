package pstgo_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hupe1980/pstgo"
	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/internal/rtf"
	"github.com/hupe1980/pstgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	submitted = time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC)
	delivered = time.Date(2024, 2, 29, 9, 31, 15, 0, time.UTC)
	rtfBody   = []byte(`{\rtf1\ansi\ansicpg1252\pard hello world\par hello again\par}`)
)

func prop(tag pstgo.PropertyTag, v []byte) testutil.Prop {
	return testutil.Prop{Tag: uint32(tag), Value: v}
}

func richMailbox() *testutil.Mailbox {
	inner := &testutil.Message{
		Subject:    "Forwarded",
		Body:       "inner body",
		Recipients: []*testutil.Recipient{{Name: "Carol", Email: "carol@example.com", Type: 1}},
		Attachments: []*testutil.Attachment{{
			Filename: "inner.bin",
			Data:     []byte{1, 2, 3},
		}},
	}
	return &testutil.Mailbox{
		DisplayName: "Personal Folders",
		Root: &testutil.Folder{
			Name: "Root",
			Folders: []*testutil.Folder{{
				Name: "Inbox",
				Messages: []*testutil.Message{{
					Subject: "\x01\x04RE: status",
					Body:    "See attached.",
					Props: []testutil.Prop{
						prop(pstgo.TagSenderName, testutil.Unicode("Bob")),
						prop(pstgo.TagSenderEmailAddress, testutil.Unicode("/o=corp/cn=bob")),
						prop(pstgo.TagSenderAddrType, testutil.Unicode("EX")),
						prop(pstgo.TagSenderSMTPAddress, testutil.Unicode("bob@example.com")),
						prop(pstgo.TagClientSubmitTime, testutil.Time(submitted)),
						prop(pstgo.TagMessageDeliveryTime, testutil.Time(delivered)),
						prop(pstgo.TagInternetMessageID, testutil.Unicode("<1@example.com>")),
						prop(pstgo.TagImportance, testutil.Int32(pstgo.ImportanceHigh)),
						prop(pstgo.TagDisplayTo, testutil.Unicode("Alice")),
						prop(pstgo.TagDisplayCc, testutil.Unicode("Dave")),
						prop(pstgo.TagBodyHTML, []byte("<p>See attached.</p>")),
						prop(pstgo.TagRTFCompressed, rtf.Compress(rtfBody)),
						prop(pstgo.TagMessageSize, testutil.Int32(4096)),
					},
					Recipients: []*testutil.Recipient{
						{Name: "Alice", Email: "alice@example.com", Type: 1},
						{Name: "Dave", Email: "dave@example.com", Type: 2},
						{Name: "Eve", Email: "eve@example.com", Type: 3},
					},
					Attachments: []*testutil.Attachment{
						{
							Filename: "report.pdf",
							MimeType: "application/pdf",
							Data:     bytes.Repeat([]byte("%PDF"), 3000),
							Props:    []testutil.Prop{prop(pstgo.TagAttachContentID, testutil.Unicode("report@1"))},
						},
						{Filename: "fwd.msg", Embedded: inner},
						{
							Filename: "logo.png",
							Data:     []byte{0x89, 'P', 'N', 'G'},
							Props:    []testutil.Prop{prop(pstgo.TagAttachmentHidden, testutil.Bool(true))},
						},
					},
				}},
			}},
		},
	}
}

func TestMessage_Accessors(t *testing.T) {
	ctx := context.Background()
	for _, tt := range formats {
		t.Run(tt.name, func(t *testing.T) {
			msg := firstMessage(t, openMailbox(t, richMailbox(), tt.format, ndb.CryptCyclic))

			assert.Equal(t, "RE: status", msg.Subject(ctx))
			assert.Equal(t, "IPM.Note", msg.MessageClass(ctx))
			assert.Equal(t, "See attached.", msg.Body(ctx))
			assert.Equal(t, "<p>See attached.</p>", msg.BodyHTML(ctx))
			assert.Equal(t, "Bob", msg.SenderName(ctx))
			assert.Equal(t, "EX", msg.SenderAddressType(ctx))
			assert.Equal(t, "/o=corp/cn=bob", msg.SenderEmail(ctx))
			assert.Equal(t, "bob@example.com", msg.SenderSMTPAddress(ctx))
			assert.True(t, submitted.Equal(msg.SubmitTime(ctx)))
			assert.True(t, delivered.Equal(msg.DeliveryTime(ctx)))
			assert.True(t, submitted.Equal(msg.Date(ctx)))
			assert.Equal(t, "<1@example.com>", msg.InternetMessageID(ctx))
			assert.Equal(t, pstgo.ImportanceHigh, msg.Importance(ctx))
			assert.Equal(t, "Alice", msg.DisplayTo(ctx))
			assert.Equal(t, "Dave", msg.DisplayCc(ctx))
			assert.Empty(t, msg.DisplayBcc(ctx))
			assert.Equal(t, int64(4096), msg.Size(ctx))
			assert.True(t, msg.IsRead(ctx))
			assert.True(t, msg.HasAttachments(ctx))
			assert.NotZero(t, msg.Flags(ctx)&pstgo.MessageFlagHasAttach)

			body, err := msg.BodyRTF(ctx)
			require.NoError(t, err)
			assert.Equal(t, rtfBody, body)
		})
	}
}

func TestMessage_Defaults(t *testing.T) {
	ctx := context.Background()
	msg := firstMessage(t, openMailbox(t, testutil.MinimalMailbox(), ndb.FormatANSI, ndb.CryptNone))

	assert.Equal(t, pstgo.ImportanceNormal, msg.Importance(ctx))
	assert.True(t, msg.Date(ctx).IsZero())
	assert.Empty(t, msg.BodyHTML(ctx))
	assert.Empty(t, msg.SenderSMTPAddress(ctx))

	_, err := msg.BodyRTF(ctx)
	assert.ErrorIs(t, err, pstgo.ErrNotFound)
}

func TestMessage_CorruptRTF(t *testing.T) {
	ctx := context.Background()
	m := testutil.MinimalMailbox()
	compressed := rtf.Compress(rtfBody)
	compressed[len(compressed)-1] ^= 0xFF
	msg := m.Root.Folders[0].Messages[0]
	msg.Props = append(msg.Props, prop(pstgo.TagRTFCompressed, compressed))

	_, err := firstMessage(t, openMailbox(t, m, ndb.FormatUnicode, ndb.CryptNone)).BodyRTF(ctx)
	assert.ErrorIs(t, err, pstgo.ErrCorrupt)
}

func TestMessage_Recipients(t *testing.T) {
	ctx := context.Background()
	msg := firstMessage(t, openMailbox(t, richMailbox(), ndb.FormatUnicode, ndb.CryptPermute))

	recips := collect(t, msg.Recipients(ctx))
	require.Len(t, recips, 3)

	want := []struct {
		name, email string
		typ         pstgo.RecipientType
	}{
		{"Alice", "alice@example.com", pstgo.RecipientTo},
		{"Dave", "dave@example.com", pstgo.RecipientCc},
		{"Eve", "eve@example.com", pstgo.RecipientBcc},
	}
	for i, r := range recips {
		assert.Equal(t, pstgo.KindRecipient, r.Kind())
		assert.Equal(t, uint32(i), r.NID())
		assert.Equal(t, want[i].name, r.DisplayName(ctx))
		assert.Equal(t, want[i].email, r.Email(ctx))
		assert.Equal(t, want[i].email, r.SMTPAddress(ctx))
		assert.Equal(t, "SMTP", r.AddressType(ctx))
		assert.Equal(t, want[i].typ, r.Type(ctx))
	}
	assert.Equal(t, "Cc", recips[1].Type(ctx).String())

	props, err := recips[0].Properties(ctx)
	require.NoError(t, err)
	var tags []pstgo.PropertyTag
	for _, p := range props {
		tags = append(tags, p.Tag)
	}
	assert.IsIncreasing(t, tags)
	assert.Contains(t, tags, pstgo.TagDisplayName)
	assert.Contains(t, tags, pstgo.TagSMTPAddress)
}

func TestMessage_Attachments(t *testing.T) {
	ctx := context.Background()
	for _, tt := range formats {
		t.Run(tt.name, func(t *testing.T) {
			msg := firstMessage(t, openMailbox(t, richMailbox(), tt.format, ndb.CryptPermute))

			n, err := msg.AttachmentCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			atts := collect(t, msg.Attachments(ctx))
			require.Len(t, atts, 3)
			pdf, fwd, logo := atts[0], atts[1], atts[2]

			assert.Equal(t, pstgo.KindAttachment, pdf.Kind())
			assert.Equal(t, "report.pdf", pdf.Filename(ctx))
			assert.Equal(t, "application/pdf", pdf.MimeType(ctx))
			assert.Equal(t, "report@1", pdf.ContentID(ctx))
			assert.Equal(t, pstgo.AttachByValue, pdf.Method(ctx))
			assert.True(t, pdf.IsFile(ctx))
			assert.False(t, pdf.IsEmbeddedMessage(ctx))
			assert.False(t, pdf.IsHidden(ctx))
			assert.Equal(t, int64(12000), pdf.Size(ctx))

			data, err := pdf.Data(ctx)
			require.NoError(t, err)
			assert.Equal(t, bytes.Repeat([]byte("%PDF"), 3000), data)

			var buf bytes.Buffer
			written, err := pdf.WriteTo(&buf)
			require.NoError(t, err)
			assert.Equal(t, int64(12000), written)
			assert.Equal(t, data, buf.Bytes())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			buf.Reset()
			written, err = pdf.WriteToContext(cancelled, &buf)
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, err, pstgo.ErrIO)
			assert.Zero(t, written)
			assert.Zero(t, buf.Len())

			assert.True(t, logo.IsHidden(ctx))

			assert.True(t, fwd.IsEmbeddedMessage(ctx))
			assert.False(t, fwd.IsFile(ctx))
			assert.Equal(t, "embedded-message", fwd.Method(ctx).String())
			_, err = fwd.Data(ctx)
			assert.ErrorIs(t, err, pstgo.ErrNotFound)
			_, err = pdf.EmbeddedMessage(ctx)
			assert.ErrorIs(t, err, pstgo.ErrInvalidOperation)
		})
	}
}

func TestAttachment_EmbeddedMessage(t *testing.T) {
	ctx := context.Background()
	msg := firstMessage(t, openMailbox(t, richMailbox(), ndb.FormatUnicode4K, ndb.CryptCyclic))

	atts := collect(t, msg.Attachments(ctx))
	require.Len(t, atts, 3)

	inner, err := atts[1].EmbeddedMessage(ctx)
	require.NoError(t, err)
	assert.True(t, inner.IsEmbedded())
	assert.Equal(t, "Forwarded", inner.Subject(ctx))
	assert.Equal(t, "inner body", inner.Body(ctx))

	recips := collect(t, inner.Recipients(ctx))
	require.Len(t, recips, 1)
	assert.Equal(t, "Carol", recips[0].DisplayName(ctx))

	innerAtts := collect(t, inner.Attachments(ctx))
	require.Len(t, innerAtts, 1)
	data, err := innerAtts[0].Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestAttachment_Save(t *testing.T) {
	ctx := context.Background()
	msg := firstMessage(t, openMailbox(t, richMailbox(), ndb.FormatUnicode, ndb.CryptNone))
	atts := collect(t, msg.Attachments(ctx))
	require.Len(t, atts, 3)

	t.Run("Memory", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		require.NoError(t, atts[0].Save(ctx, store, ""))
		require.NoError(t, atts[2].Save(ctx, store, "images/logo.png"))

		got, ok := store.Bytes("report.pdf")
		require.True(t, ok)
		assert.Len(t, got, 12000)
		got, ok = store.Bytes("images/logo.png")
		require.True(t, ok)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got)
	})

	t.Run("Local", func(t *testing.T) {
		store := blobstore.NewLocalStore(t.TempDir())
		require.NoError(t, atts[0].Save(ctx, store, ""))

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"report.pdf"}, names)
	})

	t.Run("Embedded", func(t *testing.T) {
		err := atts[1].Save(ctx, blobstore.NewMemoryStore(), "")
		assert.ErrorIs(t, err, pstgo.ErrNotFound)
	})
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{`C:\temp\a.txt`, "C__temp_a.txt"},
		{"tab\there", "tabhere"},
		{"..", ""},
		{"  ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, pstgo.SafeFilename(tt.in))
		})
	}
}
