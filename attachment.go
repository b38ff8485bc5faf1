package pstgo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/hupe1980/pstgo/blobstore"
	"github.com/hupe1980/pstgo/internal/ndb"
)

// AttachMethod tells how an attachment's content is stored.
type AttachMethod int32

// Attachment methods (TagAttachMethod).
const (
	AttachNone            AttachMethod = 0
	AttachByValue         AttachMethod = 1
	AttachByReference     AttachMethod = 2
	AttachByRefResolve    AttachMethod = 3
	AttachByRefOnly       AttachMethod = 4
	AttachEmbeddedMessage AttachMethod = 5
	AttachOLE             AttachMethod = 6
)

func (m AttachMethod) String() string {
	switch m {
	case AttachNone:
		return "none"
	case AttachByValue:
		return "by-value"
	case AttachByReference:
		return "by-reference"
	case AttachByRefResolve:
		return "by-ref-resolve"
	case AttachByRefOnly:
		return "by-ref-only"
	case AttachEmbeddedMessage:
		return "embedded-message"
	case AttachOLE:
		return "ole"
	default:
		return "unknown"
	}
}

const attachFlagMHTMLRef = 0x4

// Attachment is a subnode of a message holding one attached file, OLE
// object or embedded message.
type Attachment struct {
	element
}

// Filename returns the long filename, else the short one, else the
// display name.
func (a *Attachment) Filename(ctx context.Context) string {
	for _, tag := range []PropertyTag{TagAttachLongFilename, TagAttachFilename, TagDisplayName} {
		if s := a.String(ctx, tag); s != "" {
			return s
		}
	}
	return ""
}

// Size returns the stored attachment size, which includes the
// attachment's properties.
func (a *Attachment) Size(ctx context.Context) int64 {
	return a.Int64(ctx, TagAttachSize)
}

// Method returns the attach method.
func (a *Attachment) Method(ctx context.Context) AttachMethod {
	return AttachMethod(a.Int32(ctx, TagAttachMethod))
}

// MimeType returns the MIME content type.
func (a *Attachment) MimeType(ctx context.Context) string {
	return a.String(ctx, TagAttachMimeTag)
}

// ContentID returns the Content-ID used by inline references.
func (a *Attachment) ContentID(ctx context.Context) string {
	return a.String(ctx, TagAttachContentID)
}

// IsFile reports an attachment with binary content.
func (a *Attachment) IsFile(ctx context.Context) bool {
	switch a.Method(ctx) {
	case AttachByValue, AttachByReference, AttachByRefResolve, AttachByRefOnly:
		return true
	default:
		return false
	}
}

// IsEmbeddedMessage reports an attached message.
func (a *Attachment) IsEmbeddedMessage(ctx context.Context) bool {
	return a.Method(ctx) == AttachEmbeddedMessage
}

// IsHidden reports an attachment not shown to users.
func (a *Attachment) IsHidden(ctx context.Context) bool {
	return a.Bool(ctx, TagAttachmentHidden)
}

// IsInline reports an attachment referenced from the HTML body.
func (a *Attachment) IsInline(ctx context.Context) bool {
	return a.Int32(ctx, TagAttachFlags)&attachFlagMHTMLRef != 0
}

// Data returns the attachment bytes. Attachments without binary content
// fail with ErrNotFound.
func (a *Attachment) Data(ctx context.Context) ([]byte, error) {
	p, err := a.Property(ctx, TagAttachDataBinary)
	if err != nil {
		return nil, err
	}
	if p.Type() != TypeBinary {
		return nil, newError(ErrorKindNotFound, "attachment.data", a.nid, errors.New("no binary content"))
	}
	return p.Bytes(), nil
}

// WriteTo writes the attachment bytes to w.
func (a *Attachment) WriteTo(w io.Writer) (int64, error) {
	return a.WriteToContext(context.Background(), w)
}

// WriteToContext is WriteTo with a caller context. It fails without
// writing once ctx is done.
func (a *Attachment) WriteToContext(ctx context.Context, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, translateError("attachment.write", a.nid, err)
	}
	data, err := a.Data(ctx)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, bytes.NewReader(data))
}

// Save writes the attachment bytes to store under name. An empty name
// saves under the attachment's filename.
func (a *Attachment) Save(ctx context.Context, store blobstore.BlobStore, name string) error {
	if name == "" {
		name = SafeFilename(a.Filename(ctx))
	}
	if name == "" {
		return newError(ErrorKindInvalidOperation, "attachment.save", a.nid, errors.New("no filename"))
	}
	data, err := a.Data(ctx)
	if err != nil {
		return err
	}
	w, err := store.Create(ctx, name)
	if err != nil {
		return newError(ErrorKindIO, "attachment.save", a.nid, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return newError(ErrorKindIO, "attachment.save", a.nid, err)
	}
	if err := w.Close(); err != nil {
		return newError(ErrorKindIO, "attachment.save", a.nid, err)
	}
	return nil
}

// EmbeddedMessage returns the attached message. It lives in a subnode of
// the attachment named by TagAttachDataObject.
func (a *Attachment) EmbeddedMessage(ctx context.Context) (*Message, error) {
	const op = "attachment.embedded"
	if err := a.check(op); err != nil {
		return nil, err
	}
	if !a.IsEmbeddedMessage(ctx) {
		return nil, newError(ErrorKindInvalidOperation, op, a.nid, errors.New("not an embedded message"))
	}
	p, err := a.Property(ctx, TagAttachDataObject)
	if err != nil {
		return nil, err
	}
	nid, _, err := p.v.Object()
	if err != nil {
		return nil, translateError(op, a.nid, err)
	}
	node, err := a.file.db.SubnodeOf(ctx, a.node, nid)
	if err != nil {
		return nil, translateError(op, nid, ndb.Dangling(err, "embedded message object"))
	}
	e, err := a.file.newElement(ctx, a.gen, KindMessage, node)
	if err != nil {
		return nil, translateError(op, nid, err)
	}
	return &Message{element: e, embedded: true}, nil
}

// SafeFilename reduces name to a single path element usable as a blob
// name.
func SafeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(path.Base("/" + name))
	if name == "/" || name == "." || name == ".." {
		return ""
	}
	return name
}
