// Package table defines the in-memory tabular value that flows from the format
// decoders to the visualization widget.
//
// A Table is immutable once built. Accessors return copies so a decoded table
// can be shared between the explorer view, the export endpoint and the status
// summary without any of them observing another's changes.
package table

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "text"
	}
}

// Column describes one named column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an ordered set of named columns and rows of typed cells.
//
// Cells hold nil, string, int64, float64, bool, time.Time or []any.
type Table struct {
	columns []Column
	rows    [][]any
}

// New builds a Table from column names and rows of already typed cells.
// Column names are made unique and non-empty, short rows are padded with nil
// and column kinds are inferred from the cell values.
func New(names []string, rows [][]any) (*Table, error) {
	cols := make([]Column, len(names))
	for i, name := range uniqueNames(names) {
		cols[i] = Column{Name: name}
	}

	out := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) > len(cols) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+1, len(row), len(cols))
		}
		r := make([]any, len(cols))
		copy(r, row)
		out[i] = r
	}

	for c := range cols {
		cols[c].Kind = kindOfValues(out, c)
	}

	return &Table{columns: cols, rows: out}, nil
}

// FromStrings builds a Table from textual records, typing each column from its
// contents: all-integer columns become int64, all-numeric float64, all-boolean
// bool and all-date time.Time. Empty cells become nil.
func FromStrings(header []string, records [][]string) (*Table, error) {
	width := len(header)
	for i, rec := range records {
		if len(rec) > width {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+1, len(rec), width)
		}
	}

	rows := make([][]any, len(records))
	for i := range rows {
		rows[i] = make([]any, width)
	}

	for c := 0; c < width; c++ {
		conv := columnConverter(records, c)
		for r, rec := range records {
			if c >= len(rec) || rec[c] == "" {
				continue
			}
			rows[r][c] = conv(rec[c])
		}
	}

	return New(header, rows)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns a copy of the column descriptors.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Value returns the cell at row r, column c.
func (t *Table) Value(r, c int) any {
	return t.rows[r][c]
}

// Head returns copies of the first n rows.
func (t *Table) Head(n int) [][]any {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	out := make([][]any, n)
	for i := 0; i < n; i++ {
		out[i] = t.Row(i)
	}
	return out
}

// Format renders a cell for display.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// uniqueNames replaces empty names with "Unnamed: i" and suffixes repeated
// names with ".1", ".2", ... in order of appearance.
func uniqueNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	next := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for used[candidate] {
			next[name]++
			candidate = name + "." + strconv.Itoa(next[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}
