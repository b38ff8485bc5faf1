package testutil

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Property types used by the encoders.
const (
	typeInt16    = 0x0002
	typeInt32    = 0x0003
	typeFloat32  = 0x0004
	typeFloat64  = 0x0005
	typeCurrency = 0x0006
	typeAppTime  = 0x0007
	typeError    = 0x000A
	typeBool     = 0x000B
	typeInt64    = 0x0014
	typeTime     = 0x0040
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Unicode encodes s as UTF-16LE without a terminator.
func Unicode(s string) []byte {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return b
}

// String8 encodes s as Windows-1252.
func String8(s string) []byte {
	b, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return b
}

// Int16 encodes v little endian.
func Int16(v int16) []byte {
	return binary.LittleEndian.AppendUint16(nil, uint16(v))
}

// Int32 encodes v little endian.
func Int32(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

// Int64 encodes v little endian.
func Int64(v int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(v))
}

// Float64 encodes v as an IEEE double.
func Float64(v float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
}

// Bool encodes v as one byte.
func Bool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// epochDelta is the number of 100ns ticks between 1601 and 1970.
const epochDelta = 116444736000000000

// Time encodes t as a FILETIME.
func Time(t time.Time) []byte {
	ticks := uint64(t.Unix()*1e7 + int64(t.Nanosecond()/100) + epochDelta)
	return binary.LittleEndian.AppendUint64(nil, ticks)
}

// GUID encodes id in the mixed-endian Windows layout.
func GUID(id uuid.UUID) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], binary.BigEndian.Uint32(id[0:]))
	binary.LittleEndian.PutUint16(b[4:], binary.BigEndian.Uint16(id[4:]))
	binary.LittleEndian.PutUint16(b[6:], binary.BigEndian.Uint16(id[6:]))
	copy(b[8:], id[8:])
	return b
}

// Object encodes a PT_OBJECT reference to a subnode.
func Object(nid uint32, size uint32) []byte {
	b := binary.LittleEndian.AppendUint32(nil, nid)
	return binary.LittleEndian.AppendUint32(b, size)
}

// MultiInt32 encodes a PT_MV_LONG value.
func MultiInt32(vs ...int32) []byte {
	var b []byte
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

// MultiUnicode encodes a PT_MV_UNICODE value.
func MultiUnicode(vs ...string) []byte {
	return multiVariable(func(s string) []byte { return Unicode(s) }, vs)
}

// MultiBinary encodes a PT_MV_BINARY value.
func MultiBinary(vs ...[]byte) []byte {
	return multiVariable(func(b []byte) []byte { return b }, vs)
}

func multiVariable[T any](enc func(T) []byte, vs []T) []byte {
	head := 4 + 4*len(vs)
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(vs)))
	var data []byte
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, uint32(head+len(data)))
		data = append(data, enc(v)...)
	}
	return append(out, data...)
}

// cellSize is the width of a fixed table cell, or 4 for HNID cells.
func cellSize(ptype uint16) int {
	switch ptype {
	case typeInt64, typeTime, typeFloat64, typeCurrency, typeAppTime:
		return 8
	case typeInt16:
		return 2
	case typeBool:
		return 1
	default:
		return 4
	}
}

// inlinePC reports whether a property context stores the type in its payload.
func inlinePC(ptype uint16) bool {
	switch ptype {
	case typeInt16, typeInt32, typeFloat32, typeError, typeBool:
		return true
	}
	return false
}
