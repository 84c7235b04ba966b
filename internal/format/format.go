// Package format classifies tabular files by extension and converts between
// their bytes and a table.Table.
//
// Classification is a pure function of the file name (or URL) and always runs
// before any parser: an unrecognized extension fails with ErrUnsupportedFormat
// without touching the data. Decoding then goes through the codec registry,
// a Tag -> Codec lookup that each codec file populates in init().
//
// There is deliberately no content sniffing. The extension is authoritative.
package format

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/JonMunkholm/dataviz/internal/table"
)

// Tag identifies a tabular encoding.
type Tag int

const (
	TagUnknown Tag = iota
	TagCSV
	TagJSON
	TagXLSX
	TagParquet
)

func (t Tag) String() string {
	switch t {
	case TagCSV:
		return "CSV"
	case TagJSON:
		return "JSON"
	case TagXLSX:
		return "XLSX"
	case TagParquet:
		return "PARQUET"
	default:
		return "UNKNOWN"
	}
}

// ErrUnsupportedFormat is returned when a name's extension maps to no Tag.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DecodeError wraps a parser failure for bytes that were classified as Tag.
type DecodeError struct {
	Tag Tag
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s data: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// extensions maps lowercased suffixes to tags.
var extensions = map[string]Tag{
	".csv":     TagCSV,
	".json":    TagJSON,
	".xlsx":    TagXLSX,
	".xls":     TagXLSX,
	".parquet": TagParquet,
	".pq":      TagParquet,
}

// Classify derives the Tag of a file name or URL from its extension.
// Anything after '?' or '#' is ignored, so "https://h/data.csv?format=json"
// is CSV.
func Classify(name string) (Tag, error) {
	ext := Suffix(name)
	if tag, ok := extensions[ext]; ok {
		return tag, nil
	}
	if ext == "" {
		return TagUnknown, fmt.Errorf("%w: no file extension", ErrUnsupportedFormat)
	}
	return TagUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Suffix returns the lowercased extension of the last path segment of name,
// including the dot. A leading dot alone ("/.csv") is not an extension, and
// a trailing dot yields "".
func Suffix(name string) string {
	name, _, _ = strings.Cut(name, "?")
	name, _, _ = strings.Cut(name, "#")
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))

	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i:])
}

// Decode classifies hint and decodes data with the matching codec.
// Parser failures are returned as *DecodeError.
func Decode(data []byte, hint string) (*table.Table, error) {
	tag, err := Classify(hint)
	if err != nil {
		return nil, err
	}
	return DecodeAs(data, tag)
}

// DecodeAs decodes data with the codec registered for tag. A parser that
// panics on corrupt input is reported as a *DecodeError.
func DecodeAs(data []byte, tag Tag) (t *table.Table, err error) {
	codec, ok := Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: no codec registered for %s", ErrUnsupportedFormat, tag)
	}

	defer func() {
		if r := recover(); r != nil {
			t, err = nil, &DecodeError{Tag: tag, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	t, err = codec.Decode(data)
	if err != nil {
		return nil, &DecodeError{Tag: tag, Err: err}
	}
	return t, nil
}

// Encode writes t to w in the encoding identified by tag.
func Encode(w io.Writer, t *table.Table, tag Tag) error {
	codec, ok := Lookup(tag)
	if !ok {
		return fmt.Errorf("%w: no codec registered for %s", ErrUnsupportedFormat, tag)
	}
	if err := codec.Encode(w, t); err != nil {
		return fmt.Errorf("encode %s: %w", tag, err)
	}
	return nil
}
