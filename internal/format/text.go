package format

// text.go normalizes text-based inputs (CSV, JSON) before parsing:
//
//   - The UTF-8 BOM (0xEF 0xBB 0xBF) that Windows programs prepend is removed.
//   - Invalid UTF-8 sequences are replaced with '?' so one stray byte from a
//     legacy encoding does not fail the whole file.

import (
	"bytes"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeText strips a leading BOM and sanitizes invalid UTF-8.
// data is returned unchanged when it is already clean.
func normalizeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("?"))
}
