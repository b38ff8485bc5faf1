package ltp

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// DefaultCodePage is used for 8-bit strings when no code page is stored.
const DefaultCodePage = 1252

var codePages = map[int]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1200:  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	20127: encoding.Nop,
	20866: charmap.KOI8R,
	21866: charmap.KOI8U,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28595: charmap.ISO8859_5,
	28597: charmap.ISO8859_7,
	28599: charmap.ISO8859_9,
	28605: charmap.ISO8859_15,
	50220: japanese.ISO2022JP,
	51932: japanese.EUCJP,
	51949: korean.EUCKR,
	54936: simplifiedchinese.GB18030,
	65001: encoding.Nop,
}

// CodePageEncoding returns the encoding of a Windows code page.
func CodePageEncoding(cp int) (encoding.Encoding, error) {
	if enc, ok := codePages[cp]; ok {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(fmt.Sprintf("windows-%d", cp))
	if err != nil || enc == nil {
		return nil, fmt.Errorf("ltp: unsupported code page %d", cp)
	}
	return enc, nil
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeUnicode decodes UTF-16LE and drops trailing NULs.
func DecodeUnicode(b []byte) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	s, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(s), "\x00")
}

// DecodeString8 decodes an 8-bit string in code page cp, falling back to
// Windows-1252 for unknown code pages.
func DecodeString8(b []byte, cp int) string {
	enc, err := CodePageEncoding(cp)
	if err != nil {
		enc = charmap.Windows1252
	}
	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		s, _ = charmap.Windows1252.NewDecoder().Bytes(b)
	}
	return strings.TrimRight(string(s), "\x00")
}
