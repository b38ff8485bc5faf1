package pstgo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/pstgo/internal/ltp"
)

// PropertyTag identifies a property: the id in the high and the type in
// the low 16 bits.
type PropertyTag uint32

// NewPropertyTag builds a tag.
func NewPropertyTag(id uint16, t PropertyType) PropertyTag {
	return PropertyTag(uint32(id)<<16 | uint32(t))
}

// ID returns the property id.
func (t PropertyTag) ID() uint16 { return uint16(t >> 16) }

// Type returns the property type.
func (t PropertyTag) Type() PropertyType { return PropertyType(t) }

// IsNamed reports a property id mapped through the name-to-id map.
func (t PropertyTag) IsNamed() bool { return t.ID() >= 0x8000 }

func (t PropertyTag) String() string { return fmt.Sprintf("0x%08X", uint32(t)) }

// PropertyType is the stored type of a property value.
type PropertyType = ltp.PropType

// Property types.
const (
	TypeInt16    = ltp.TypeInt16
	TypeInt32    = ltp.TypeInt32
	TypeFloat32  = ltp.TypeFloat32
	TypeFloat64  = ltp.TypeFloat64
	TypeCurrency = ltp.TypeCurrency
	TypeAppTime  = ltp.TypeAppTime
	TypeError    = ltp.TypeError
	TypeBoolean  = ltp.TypeBoolean
	TypeObject   = ltp.TypeObject
	TypeInt64    = ltp.TypeInt64
	TypeString8  = ltp.TypeString8
	TypeUnicode  = ltp.TypeUnicode
	TypeTime     = ltp.TypeTime
	TypeGUID     = ltp.TypeGUID
	TypeBinary   = ltp.TypeBinary
	TypeMulti    = ltp.TypeMulti
)

// Property is one decoded property value.
type Property struct {
	// Tag carries the stored type, which may differ from the requested one.
	Tag PropertyTag
	v   ltp.Value
}

func newProperty(v ltp.Value) Property {
	return Property{Tag: PropertyTag(v.Tag), v: v}
}

// Type returns the stored type.
func (p Property) Type() PropertyType { return p.Tag.Type() }

// Bytes returns the stored bytes. For strings this is the encoded form.
func (p Property) Bytes() []byte { return p.v.Raw }

// Int returns integer and boolean values widened to int64.
func (p Property) Int() (int64, error) {
	n, err := p.v.Int()
	return n, p.err(err)
}

// Bool returns a boolean value.
func (p Property) Bool() (bool, error) {
	b, err := p.v.Bool()
	return b, p.err(err)
}

// Float returns floating point and currency values.
func (p Property) Float() (float64, error) {
	f, err := p.v.Float()
	return f, p.err(err)
}

// Time returns time values in UTC.
func (p Property) Time() (time.Time, error) {
	t, err := p.v.Time()
	return t, p.err(err)
}

// Text returns string values decoded to UTF-8.
func (p Property) Text() (string, error) {
	s, err := p.v.Text()
	return s, p.err(err)
}

// GUID returns a GUID value.
func (p Property) GUID() (uuid.UUID, error) {
	g, err := p.v.GUID()
	return g, p.err(err)
}

// Strings returns a multi-valued string property.
func (p Property) Strings() ([]string, error) {
	s, err := p.v.Strings()
	return s, p.err(err)
}

// Value decodes the property into a Go value: int64, bool, float64,
// time.Time, string, uuid.UUID, []byte or []any for multi-valued types.
func (p Property) Value() (any, error) {
	x, err := p.v.Interface()
	return x, p.err(err)
}

// Format renders the value for display.
func (p Property) Format() string { return p.v.Format() }

func (p Property) err(err error) error {
	return translateError("property "+p.Tag.String(), 0, err)
}

// NamedProperty is the name of a property id of 0x8000 or above.
type NamedProperty struct {
	ID   uint16
	GUID uuid.UUID
	// LID is the numeric name; Name the string name. Exactly one is set.
	LID  uint32
	Name string
	str  bool
}

// IsString reports a string name.
func (n NamedProperty) IsString() bool { return n.str }

func (n NamedProperty) String() string {
	if n.IsString() {
		return fmt.Sprintf("{%s}/%s", n.GUID, n.Name)
	}
	return fmt.Sprintf("{%s}/0x%X", n.GUID, n.LID)
}

// NameMap resolves named property ids.
type NameMap struct {
	m *ltp.NameMap
}

func namedProperty(p ltp.NamedProperty) NamedProperty {
	return NamedProperty{ID: p.ID, GUID: p.GUID, LID: p.LID, Name: p.Name, str: p.IsString()}
}

// Len returns the number of named properties.
func (m *NameMap) Len() int { return m.m.Len() }

// All returns the entries in id order.
func (m *NameMap) All() []NamedProperty {
	all := m.m.All()
	out := make([]NamedProperty, len(all))
	for i, p := range all {
		out[i] = namedProperty(p)
	}
	return out
}

// Lookup returns the name of a property id.
func (m *NameMap) Lookup(id uint16) (NamedProperty, bool) {
	p, ok := m.m.Lookup(id)
	return namedProperty(p), ok
}

// FindLID returns the tag id of a numeric name.
func (m *NameMap) FindLID(guid uuid.UUID, lid uint32) (uint16, bool) {
	return m.m.FindLID(guid, lid)
}

// FindName returns the tag id of a string name.
func (m *NameMap) FindName(guid uuid.UUID, name string) (uint16, bool) {
	return m.m.FindName(guid, name)
}

// Well-known property sets.
var (
	PSMAPI          = ltp.PSMAPI
	PSPublicStrings = ltp.PSPublicStrings
)
