package format

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/JonMunkholm/dataviz/internal/table"
)

func init() {
	Register(Codec{
		Tag:       TagCSV,
		Name:      "csv",
		MediaType: "text/csv; charset=utf-8",
		Extension: ".csv",
		Decode:    decodeCSV,
		Encode:    encodeCSV,
	})
}

// errNoColumns mirrors the failure for input with no header row.
var errNoColumns = errors.New("no columns to parse from file")

// decodeCSV reads the first record as the header. Rows may be shorter than
// the header (missing cells become nil) but not longer.
func decodeCSV(data []byte) (*table.Table, error) {
	r := csv.NewReader(bytes.NewReader(normalizeText(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errNoColumns
	}
	if err != nil {
		return nil, err
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	return table.FromStrings(header, records)
}

func encodeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}

	record := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for c := range record {
			record[c] = table.Format(t.Value(r, c))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
