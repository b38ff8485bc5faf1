package ltp

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/pstgo/internal/ndb"
)

// PropType is the 16-bit type of a property tag.
type PropType uint16

const (
	TypeUnspecified PropType = 0x0000
	TypeNull        PropType = 0x0001
	TypeInt16       PropType = 0x0002
	TypeInt32       PropType = 0x0003
	TypeFloat32     PropType = 0x0004
	TypeFloat64     PropType = 0x0005
	TypeCurrency    PropType = 0x0006
	TypeAppTime     PropType = 0x0007
	TypeError       PropType = 0x000A
	TypeBoolean     PropType = 0x000B
	TypeObject      PropType = 0x000D
	TypeInt64       PropType = 0x0014
	TypeString8     PropType = 0x001E
	TypeUnicode     PropType = 0x001F
	TypeTime        PropType = 0x0040
	TypeGUID        PropType = 0x0048
	TypeServerID    PropType = 0x00FB
	TypeRestriction PropType = 0x00FD
	TypeRuleAction  PropType = 0x00FE
	TypeBinary      PropType = 0x0102

	// TypeMulti is the flag of multi-valued types.
	TypeMulti PropType = 0x1000

	TypeMultiInt16   = TypeMulti | TypeInt16
	TypeMultiInt32   = TypeMulti | TypeInt32
	TypeMultiFloat32 = TypeMulti | TypeFloat32
	TypeMultiFloat64 = TypeMulti | TypeFloat64
	TypeMultiInt64   = TypeMulti | TypeInt64
	TypeMultiString8 = TypeMulti | TypeString8
	TypeMultiUnicode = TypeMulti | TypeUnicode
	TypeMultiTime    = TypeMulti | TypeTime
	TypeMultiGUID    = TypeMulti | TypeGUID
	TypeMultiBinary  = TypeMulti | TypeBinary
)

var typeNames = map[PropType]string{
	TypeUnspecified: "PT_UNSPECIFIED",
	TypeNull:        "PT_NULL",
	TypeInt16:       "PT_SHORT",
	TypeInt32:       "PT_LONG",
	TypeFloat32:     "PT_FLOAT",
	TypeFloat64:     "PT_DOUBLE",
	TypeCurrency:    "PT_CURRENCY",
	TypeAppTime:     "PT_APPTIME",
	TypeError:       "PT_ERROR",
	TypeBoolean:     "PT_BOOLEAN",
	TypeObject:      "PT_OBJECT",
	TypeInt64:       "PT_I8",
	TypeString8:     "PT_STRING8",
	TypeUnicode:     "PT_UNICODE",
	TypeTime:        "PT_SYSTIME",
	TypeGUID:        "PT_CLSID",
	TypeServerID:    "PT_SVREID",
	TypeRestriction: "PT_SRESTRICT",
	TypeRuleAction:  "PT_ACTIONS",
	TypeBinary:      "PT_BINARY",
}

func (t PropType) String() string {
	if t.IsMulti() {
		return "PT_MV_" + strings.TrimPrefix(t.Base().String(), "PT_")
	}
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("PT_0x%04X", uint16(t))
}

// IsMulti reports a multi-valued type.
func (t PropType) IsMulti() bool { return t&TypeMulti != 0 }

// Base strips the multi-valued flag.
func (t PropType) Base() PropType { return t &^ TypeMulti }

// FixedSize returns the size of fixed-width single-valued types.
func (t PropType) FixedSize() (int, bool) {
	switch t {
	case TypeBoolean:
		return 1, true
	case TypeInt16:
		return 2, true
	case TypeInt32, TypeFloat32, TypeError:
		return 4, true
	case TypeFloat64, TypeCurrency, TypeAppTime, TypeInt64, TypeTime:
		return 8, true
	case TypeGUID:
		return 16, true
	default:
		return 0, false
	}
}

// Tag is a property tag: the id in the high and the type in the low 16 bits.
type Tag uint32

// MakeTag builds a tag.
func MakeTag(id uint16, t PropType) Tag { return Tag(uint32(id)<<16 | uint32(t)) }

// ID returns the property id.
func (t Tag) ID() uint16 { return uint16(t >> 16) }

// Type returns the property type.
func (t Tag) Type() PropType { return PropType(t) }

func (t Tag) String() string { return fmt.Sprintf("0x%08X", uint32(t)) }

// Value is a decoded property value. Raw aliases file data and must not be
// modified.
type Value struct {
	Tag      Tag
	Raw      []byte
	CodePage int
}

// Type returns the stored property type.
func (v Value) Type() PropType { return v.Tag.Type() }

func (v Value) typeErr(want string) error {
	return fmt.Errorf("%w: %s is %s, not %s", ErrType, v.Tag, v.Type(), want)
}

func (v Value) sized(n int) error {
	if len(v.Raw) != n {
		return corruptf("%s: %d bytes, want %d", v.Tag, len(v.Raw), n)
	}
	return nil
}

// Int returns integer types widened to int64.
func (v Value) Int() (int64, error) {
	switch v.Type() {
	case TypeInt16:
		if err := v.sized(2); err != nil {
			return 0, err
		}
		return int64(int16(binary.LittleEndian.Uint16(v.Raw))), nil
	case TypeInt32, TypeError:
		if err := v.sized(4); err != nil {
			return 0, err
		}
		return int64(int32(binary.LittleEndian.Uint32(v.Raw))), nil
	case TypeInt64, TypeCurrency:
		if err := v.sized(8); err != nil {
			return 0, err
		}
		return int64(binary.LittleEndian.Uint64(v.Raw)), nil
	case TypeBoolean:
		b, err := v.Bool()
		if b {
			return 1, err
		}
		return 0, err
	default:
		return 0, v.typeErr("an integer")
	}
}

// Bool returns a PT_BOOLEAN value.
func (v Value) Bool() (bool, error) {
	if v.Type() != TypeBoolean {
		return false, v.typeErr("a boolean")
	}
	if len(v.Raw) < 1 {
		return false, corruptf("%s: empty boolean", v.Tag)
	}
	return v.Raw[0] != 0, nil
}

// Float returns floating point types.
func (v Value) Float() (float64, error) {
	switch v.Type() {
	case TypeFloat32:
		if err := v.sized(4); err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.Raw))), nil
	case TypeFloat64, TypeAppTime:
		if err := v.sized(8); err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(v.Raw)), nil
	case TypeCurrency:
		n, err := v.Int()
		return float64(n) / 10000, err
	default:
		return 0, v.typeErr("a float")
	}
}

// Time returns PT_SYSTIME and PT_APPTIME values in UTC.
func (v Value) Time() (time.Time, error) {
	switch v.Type() {
	case TypeTime:
		if err := v.sized(8); err != nil {
			return time.Time{}, err
		}
		return FileTime(binary.LittleEndian.Uint64(v.Raw)), nil
	case TypeAppTime:
		days, err := v.Float()
		if err != nil {
			return time.Time{}, err
		}
		return OLEDate(days), nil
	default:
		return time.Time{}, v.typeErr("a time")
	}
}

// Text returns string types decoded to UTF-8.
func (v Value) Text() (string, error) {
	switch v.Type() {
	case TypeUnicode:
		return DecodeUnicode(v.Raw), nil
	case TypeString8:
		return DecodeString8(v.Raw, v.codePage()), nil
	default:
		return "", v.typeErr("a string")
	}
}

func (v Value) codePage() int {
	if v.CodePage == 0 {
		return DefaultCodePage
	}
	return v.CodePage
}

// GUID returns a PT_CLSID value.
func (v Value) GUID() (uuid.UUID, error) {
	if v.Type() != TypeGUID {
		return uuid.Nil, v.typeErr("a guid")
	}
	if err := v.sized(16); err != nil {
		return uuid.Nil, err
	}
	return GUIDFromBytes(v.Raw), nil
}

// Object returns the subnode reference of a PT_OBJECT value.
func (v Value) Object() (ndb.NID, uint32, error) {
	if v.Type() != TypeObject {
		return 0, 0, v.typeErr("an object")
	}
	if err := v.sized(8); err != nil {
		return 0, 0, err
	}
	return ndb.NID(binary.LittleEndian.Uint32(v.Raw)), binary.LittleEndian.Uint32(v.Raw[4:]), nil
}

// Elements splits a multi-valued property into single values.
func (v Value) Elements() ([]Value, error) {
	if !v.Type().IsMulti() {
		return nil, v.typeErr("multi-valued")
	}
	base := v.Type().Base()
	elemTag := Tag(uint32(v.Tag)&0xFFFF0000 | uint32(base))

	if size, ok := base.FixedSize(); ok {
		if len(v.Raw)%size != 0 {
			return nil, corruptf("%s: %d bytes is not a multiple of %d", v.Tag, len(v.Raw), size)
		}
		out := make([]Value, len(v.Raw)/size)
		for i := range out {
			out[i] = Value{Tag: elemTag, Raw: v.Raw[i*size : (i+1)*size], CodePage: v.CodePage}
		}
		return out, nil
	}

	if len(v.Raw) == 0 {
		return nil, nil
	}
	if len(v.Raw) < 4 {
		return nil, corruptf("%s: truncated count", v.Tag)
	}
	count := int(binary.LittleEndian.Uint32(v.Raw))
	if count > (len(v.Raw)-4)/4 {
		return nil, corruptf("%s: %d values in %d bytes", v.Tag, count, len(v.Raw))
	}
	out := make([]Value, count)
	for i := range out {
		start := int(binary.LittleEndian.Uint32(v.Raw[4+4*i:]))
		end := len(v.Raw)
		if i+1 < count {
			end = int(binary.LittleEndian.Uint32(v.Raw[8+4*i:]))
		}
		if start < 4+4*count || start > end || end > len(v.Raw) {
			return nil, corruptf("%s: value %d at [%d,%d) of %d bytes", v.Tag, i, start, end, len(v.Raw))
		}
		out[i] = Value{Tag: elemTag, Raw: v.Raw[start:end], CodePage: v.CodePage}
	}
	return out, nil
}

// Strings returns a multi-valued string property.
func (v Value) Strings() ([]string, error) {
	elems, err := v.Elements()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		if out[i], err = e.Text(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Interface decodes the value into a Go value: int64, bool, float64,
// time.Time, string, uuid.UUID, []byte or a slice of these.
func (v Value) Interface() (any, error) {
	switch t := v.Type(); {
	case t.IsMulti():
		elems, err := v.Elements()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			if out[i], err = e.Interface(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case t == TypeInt16 || t == TypeInt32 || t == TypeInt64 || t == TypeError:
		return v.Int()
	case t == TypeBoolean:
		return v.Bool()
	case t == TypeFloat32 || t == TypeFloat64 || t == TypeCurrency:
		return v.Float()
	case t == TypeTime || t == TypeAppTime:
		return v.Time()
	case t == TypeUnicode || t == TypeString8:
		return v.Text()
	case t == TypeGUID:
		return v.GUID()
	case t == TypeNull || t == TypeUnspecified:
		return nil, nil
	default:
		return v.Raw, nil
	}
}

// Format renders the value for display.
func (v Value) Format() string {
	x, err := v.Interface()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return formatAny(x)
}

func formatAny(x any) string {
	switch x := x.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	case uuid.UUID:
		return "{" + strings.ToUpper(x.String()) + "}"
	case []byte:
		return hex.EncodeToString(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatAny(e)
		}
		return "[" + strings.Join(parts, "; ") + "]"
	default:
		return fmt.Sprint(x)
	}
}

// fileTimeEpoch is the number of 100ns ticks between 1601 and 1970.
const fileTimeEpoch = 116444736000000000

// FileTime converts 100ns ticks since 1601 to UTC time.
func FileTime(ticks uint64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	t := int64(ticks) - fileTimeEpoch
	return time.Unix(t/1e7, (t%1e7)*100).UTC()
}

// oleEpoch is the origin of OLE automation dates.
var oleEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// OLEDate converts fractional days since 1899-12-30 to UTC time.
func OLEDate(days float64) time.Time {
	return oleEpoch.Add(time.Duration(days * float64(24*time.Hour)))
}

// GUIDFromBytes converts the mixed-endian Windows GUID layout.
func GUIDFromBytes(b []byte) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint32(id[0:], binary.LittleEndian.Uint32(b[0:]))
	binary.BigEndian.PutUint16(id[4:], binary.LittleEndian.Uint16(b[4:]))
	binary.BigEndian.PutUint16(id[6:], binary.LittleEndian.Uint16(b[6:]))
	copy(id[8:], b[8:16])
	return id
}
