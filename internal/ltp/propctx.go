package ltp

import (
	"context"
	"encoding/binary"
	"iter"
	"sort"
)

// Tags that select the code page of 8-bit strings.
const (
	TagMessageCodePage Tag = 0x3FFD0003
	TagInternetCPID    Tag = 0x3FDE0003
)

// Option configures decoding.
type Option func(*options)

type options struct {
	codePage int
}

// WithCodePage sets the code page used for 8-bit strings when the
// structure does not store one.
func WithCodePage(cp int) Option {
	return func(o *options) {
		if cp > 0 {
			o.codePage = cp
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{codePage: DefaultCodePage}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type propEntry struct {
	id      uint16
	ptype   PropType
	payload uint32
}

// PropertyContext is a decoded property context.
type PropertyContext struct {
	heap     *Heap
	props    []propEntry
	codePage int
}

// DecodePropertyContext decodes the property BTH of heap.
func DecodePropertyContext(ctx context.Context, heap *Heap, opts ...Option) (*PropertyContext, error) {
	o := applyOptions(opts)
	if heap.ClientSig() != ClientSigPC {
		return nil, corruptf("heap of %s: client signature %#x is not a property context", heap.Node().NID, heap.ClientSig())
	}
	bth, err := OpenBTH(heap, heap.UserRoot())
	if err != nil {
		return nil, err
	}
	if bth.KeySize() != 2 || bth.DataSize() != 6 {
		return nil, corruptf("property context of %s: record %d+%d bytes", heap.Node().NID, bth.KeySize(), bth.DataSize())
	}
	records, err := bth.Records()
	if err != nil {
		return nil, err
	}

	pc := &PropertyContext{heap: heap, props: make([]propEntry, len(records)), codePage: o.codePage}
	for i, r := range records {
		pc.props[i] = propEntry{
			id:      binary.LittleEndian.Uint16(r.Key),
			ptype:   PropType(binary.LittleEndian.Uint16(r.Data)),
			payload: binary.LittleEndian.Uint32(r.Data[2:]),
		}
	}
	sort.Slice(pc.props, func(i, j int) bool { return pc.props[i].id < pc.props[j].id })
	for i := 1; i < len(pc.props); i++ {
		if pc.props[i].id == pc.props[i-1].id {
			return nil, corruptf("property context of %s: duplicate property 0x%04X", heap.Node().NID, pc.props[i].id)
		}
	}

	for _, tag := range []Tag{TagMessageCodePage, TagInternetCPID} {
		if e, ok := pc.find(tag.ID()); ok && e.ptype == TypeInt32 && e.payload != 0 {
			pc.codePage = int(e.payload)
			break
		}
	}
	return pc, nil
}

func (pc *PropertyContext) find(id uint16) (propEntry, bool) {
	i := sort.Search(len(pc.props), func(i int) bool { return pc.props[i].id >= id })
	if i < len(pc.props) && pc.props[i].id == id {
		return pc.props[i], true
	}
	return propEntry{}, false
}

// Len returns the number of properties.
func (pc *PropertyContext) Len() int { return len(pc.props) }

// CodePage returns the code page applied to 8-bit strings.
func (pc *PropertyContext) CodePage() int { return pc.codePage }

// Heap returns the underlying heap.
func (pc *PropertyContext) Heap() *Heap { return pc.heap }

// Has reports whether a property with the tag's id exists.
func (pc *PropertyContext) Has(tag Tag) bool {
	_, ok := pc.find(tag.ID())
	return ok
}

// Tags returns the stored tags in ascending order.
func (pc *PropertyContext) Tags() []Tag {
	out := make([]Tag, len(pc.props))
	for i, p := range pc.props {
		out[i] = MakeTag(p.id, p.ptype)
	}
	return out
}

// Get returns the property with the tag's id. The stored type wins over
// the type of tag.
func (pc *PropertyContext) Get(ctx context.Context, tag Tag) (Value, error) {
	e, ok := pc.find(tag.ID())
	if !ok {
		return Value{}, notFoundf("property %s", tag)
	}
	return pc.decode(ctx, e)
}

func (pc *PropertyContext) decode(ctx context.Context, e propEntry) (Value, error) {
	v := Value{Tag: MakeTag(e.id, e.ptype), CodePage: pc.codePage}

	if size, ok := e.ptype.FixedSize(); ok && size <= 4 {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], e.payload)
		v.Raw = buf[:size]
		return v, nil
	}

	data, err := pc.heap.ReadHNID(ctx, HNID(e.payload))
	if err != nil {
		return Value{}, err
	}
	v.Raw = data
	if size, ok := e.ptype.FixedSize(); ok && len(data) != size {
		return Value{}, corruptf("property %s: %d bytes, want %d", v.Tag, len(data), size)
	}
	return v, nil
}

// All decodes every property in tag order. A property that fails to decode
// yields its error and iteration continues.
func (pc *PropertyContext) All(ctx context.Context) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		for _, e := range pc.props {
			v, err := pc.decode(ctx, e)
			if err != nil {
				v = Value{Tag: MakeTag(e.id, e.ptype)}
			}
			if !yield(v, err) {
				return
			}
		}
	}
}
