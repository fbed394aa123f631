package generic

import (
	"golang.org/x/text/encoding/unicode"
)

// utf16be handles PDF text strings beyond the PDFDocEncoding range. The
// spec requires UTF-16BE with a leading byte order mark.
var utf16be = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// NewTextString creates a PDF text string. Strings that fit into single
// bytes are stored as-is; anything else is encoded as UTF-16BE with a BOM.
func NewTextString(s string) *StringObject {
	needsUnicode := false
	for _, r := range s {
		if r > 0xFF {
			needsUnicode = true
			break
		}
	}

	if !needsUnicode {
		return &StringObject{Value: []byte(s)}
	}

	encoded, err := utf16be.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// The encoder only fails on invalid UTF-8; fall back to the raw
		// bytes rather than dropping the value.
		return &StringObject{Value: []byte(s)}
	}
	return &StringObject{Value: encoded}
}

// Text decodes the string value as document text: UTF-16BE when the BOM is
// present, raw bytes otherwise.
func (s *StringObject) Text() string {
	if len(s.Value) >= 2 && s.Value[0] == 0xFE && s.Value[1] == 0xFF {
		decoded, err := utf16be.NewDecoder().Bytes(s.Value)
		if err == nil {
			return string(decoded)
		}
	}
	return string(s.Value)
}
