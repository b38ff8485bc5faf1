package pstgo

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
)

// Kind tags the element variants.
type Kind uint8

const (
	KindFolder Kind = iota + 1
	KindMessage
	KindAttachment
	KindRecipient
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindMessage:
		return "message"
	case KindAttachment:
		return "attachment"
	case KindRecipient:
		return "recipient"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Element is implemented by Folder, Message, Attachment, Recipient and
// MessageStore.
type Element interface {
	NID() uint32
	Kind() Kind
	Property(ctx context.Context, tag PropertyTag) (Property, error)
	Properties(ctx context.Context) ([]Property, error)
}

// propSource is a property context or a table row.
type propSource interface {
	get(ctx context.Context, tag ltp.Tag) (ltp.Value, error)
	all(ctx context.Context) iter.Seq2[ltp.Value, error]
}

type pcProps struct{ pc *ltp.PropertyContext }

func (p pcProps) get(ctx context.Context, tag ltp.Tag) (ltp.Value, error) { return p.pc.Get(ctx, tag) }

func (p pcProps) all(ctx context.Context) iter.Seq2[ltp.Value, error] { return p.pc.All(ctx) }

type rowProps struct{ row *ltp.Row }

func (p rowProps) get(ctx context.Context, tag ltp.Tag) (ltp.Value, error) {
	return p.row.Get(ctx, tag)
}

func (p rowProps) all(ctx context.Context) iter.Seq2[ltp.Value, error] { return p.row.Values(ctx) }

// element is the state shared by all variants: the owning file and its
// generation, the node and the property source.
type element struct {
	file *File
	gen  uint64
	kind Kind
	// node holds the properties, or for recipients the owning message.
	node  ndb.Node
	nid   ndb.NID
	props propSource
}

// NID returns the node id, or the row id for recipients.
func (e element) NID() uint32 { return uint32(e.nid) }

// Kind returns the element variant.
func (e element) Kind() Kind { return e.kind }

func (e element) check(op string) error {
	return e.file.check(e.gen, op, ndb.NID(e.NID()))
}

// Property returns the property with the id of tag. The stored type wins
// over the type half of tag. Absent properties fail with ErrNotFound.
func (e element) Property(ctx context.Context, tag PropertyTag) (Property, error) {
	if err := e.check("property"); err != nil {
		return Property{}, err
	}
	v, err := e.props.get(ctx, ltp.Tag(tag))
	if err != nil {
		return Property{}, translateError("property "+tag.String(), ndb.NID(e.NID()), err)
	}
	return newProperty(v), nil
}

// Has reports whether the property is present.
func (e element) Has(ctx context.Context, tag PropertyTag) bool {
	_, err := e.Property(ctx, tag)
	return err == nil
}

// Properties returns all decodable properties sorted by tag. Properties
// that fail to decode are left out and reported in the joined error.
func (e element) Properties(ctx context.Context) ([]Property, error) {
	if err := e.check("properties"); err != nil {
		return nil, err
	}
	var out []Property
	var errs []error
	for v, err := range e.props.all(ctx) {
		if err != nil {
			errs = append(errs, translateError("property "+PropertyTag(v.Tag).String(), ndb.NID(e.NID()), err))
			continue
		}
		out = append(out, newProperty(v))
	}
	return out, errors.Join(errs...)
}

// String returns a string property, or "" when absent or not a string.
func (e element) String(ctx context.Context, tag PropertyTag) string {
	p, err := e.Property(ctx, tag)
	if err != nil {
		return ""
	}
	s, _ := p.Text()
	return s
}

// Int32 returns an integer property, or 0.
func (e element) Int32(ctx context.Context, tag PropertyTag) int32 {
	return int32(e.Int64(ctx, tag))
}

// Int64 returns an integer property, or 0.
func (e element) Int64(ctx context.Context, tag PropertyTag) int64 {
	p, err := e.Property(ctx, tag)
	if err != nil {
		return 0
	}
	n, _ := p.Int()
	return n
}

// Bool returns a boolean property, or false.
func (e element) Bool(ctx context.Context, tag PropertyTag) bool {
	p, err := e.Property(ctx, tag)
	if err != nil {
		return false
	}
	b, _ := p.Bool()
	return b
}

// Time returns a time property, or the zero time.
func (e element) Time(ctx context.Context, tag PropertyTag) time.Time {
	p, err := e.Property(ctx, tag)
	if err != nil {
		return time.Time{}
	}
	t, _ := p.Time()
	return t
}

// Bytes returns the stored bytes of a property, or nil.
func (e element) Bytes(ctx context.Context, tag PropertyTag) []byte {
	p, err := e.Property(ctx, tag)
	if err != nil {
		return nil
	}
	return p.Bytes()
}

// DisplayName returns PR_DISPLAY_NAME.
func (e element) DisplayName(ctx context.Context) string {
	return e.String(ctx, TagDisplayName)
}

// rows iterates a table, turning each row into an element with conv. A
// row that fails yields its error and iteration continues.
func rows[T any](ctx context.Context, f *File, gen uint64, table string, tc *ltp.TableContext, conv func(*ltp.Row) (*T, error)) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for row, err := range tc.Rows(ctx) {
			if err := f.check(gen, table, 0); err != nil {
				yield(nil, err)
				return
			}
			var out *T
			if err == nil {
				out, err = conv(row)
			}
			if err != nil {
				var nid uint32
				if row != nil {
					nid = row.ID
				}
				f.opts.metricsCollector.RecordRowError(table)
				f.logger.LogRowSkipped(ctx, table, nid, err)
				if !yield(nil, translateError(table, ndb.NID(nid), err)) {
					return
				}
				continue
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// table decodes the table context of a top-level node or a subnode of
// parent. A missing table yields an empty context.
func (e element) table(ctx context.Context, nid ndb.NID, local bool) (*ltp.TableContext, error) {
	var node ndb.Node
	var err error
	if local {
		node, err = e.file.db.SubnodeOf(ctx, e.node, nid)
	} else {
		node, err = e.file.db.Node(ctx, nid)
	}
	if errors.Is(err, ndb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.file.tableContext(ctx, e.gen, node)
}

// emptySeq yields nothing, or err once.
func emptySeq[T any](err error) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		if err != nil {
			yield(nil, err)
		}
	}
}
