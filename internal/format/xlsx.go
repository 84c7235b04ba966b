package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/dataviz/internal/table"
)

func init() {
	Register(Codec{
		Tag:       TagXLSX,
		Name:      "xlsx",
		MediaType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension: ".xlsx",
		Decode:    decodeXLSX,
		Encode:    encodeXLSX,
	})
}

// decodeXLSX reads the first worksheet. The first row is the header; rows
// wider than the header extend it with unnamed columns.
func decodeXLSX(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no worksheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return table.New(nil, nil)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	header := make([]string, width)
	copy(header, rows[0])

	return table.FromStrings(header, rows[1:])
}

func encodeXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, t.NumCols())
	for i, name := range t.Names() {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for r := 0; r < t.NumRows(); r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		row := t.Row(r)
		for c, v := range row {
			row[c] = xlsxCell(v)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	return f.Write(w)
}

// xlsxCell keeps numbers and booleans native and writes dates and nested
// values as text so they read back the way they were written.
func xlsxCell(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool:
		return x
	default:
		return table.Format(x)
	}
}
