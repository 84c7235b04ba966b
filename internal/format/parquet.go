package format

import (
	"bytes"
	"errors"
	"io"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/JonMunkholm/dataviz/internal/table"
)

func init() {
	Register(Codec{
		Tag:       TagParquet,
		Name:      "parquet",
		MediaType: "application/vnd.apache.parquet",
		Extension: ".parquet",
		Decode:    decodeParquet,
		Encode:    encodeParquet,
	})
}

const parquetBatchSize = 256

// decodeParquet reads every row group. Nested leaves are named by their path
// joined with '.', and repeated leaves produce []any cells.
func decodeParquet(data []byte) (*table.Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	schema := f.Schema()
	paths := schema.Columns()
	names := make([]string, len(paths))
	cells := make([]cellFunc, len(paths))
	for i, p := range paths {
		names[i] = strings.Join(p, ".")
		cells[i] = parquetCell
		if leaf, ok := schema.Lookup(p...); ok {
			cells[i] = cellFuncFor(leaf.Node)
		}
	}

	rows := make([][]any, 0, f.NumRows())
	buf := make([]parquet.Row, parquetBatchSize)

	for _, rg := range f.RowGroups() {
		rr := rg.Rows()
		for {
			n, err := rr.ReadRows(buf)
			for _, row := range buf[:n] {
				rows = append(rows, parquetRow(row, cells))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rr.Close()
				return nil, err
			}
		}
		if err := rr.Close(); err != nil {
			return nil, err
		}
	}

	return table.New(names, rows)
}

func parquetRow(row parquet.Row, cells []cellFunc) []any {
	width := len(cells)
	out := make([]any, width)
	counts := make([]int, width)

	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= width || v.IsNull() {
			continue
		}
		cell := cells[c](v)
		switch counts[c] {
		case 0:
			out[c] = cell
		case 1:
			out[c] = []any{out[c], cell}
		default:
			out[c] = append(out[c].([]any), cell)
		}
		counts[c]++
	}
	return out
}

// cellFunc converts one leaf value to a table cell.
type cellFunc func(parquet.Value) any

// cellFuncFor honours the leaf's logical type: timestamps, dates and INT96
// become time.Time in UTC, decimals float64.
func cellFuncFor(n parquet.Node) cellFunc {
	if n.Type().Kind() == parquet.Int96 {
		return int96Cell
	}

	lt := n.Type().LogicalType()
	switch {
	case lt == nil:
		return parquetCell
	case lt.Timestamp != nil:
		unit := time.Millisecond
		switch {
		case lt.Timestamp.Unit.Micros != nil:
			unit = time.Microsecond
		case lt.Timestamp.Unit.Nanos != nil:
			unit = time.Nanosecond
		}
		return func(v parquet.Value) any {
			return epochTime(v.Int64(), unit)
		}
	case lt.Date != nil:
		return func(v parquet.Value) any {
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
	case lt.Decimal != nil:
		scale := math.Pow10(int(lt.Decimal.Scale))
		return func(v parquet.Value) any {
			return decimalValue(v) / scale
		}
	default:
		return parquetCell
	}
}

func epochTime(n int64, unit time.Duration) time.Time {
	switch unit {
	case time.Nanosecond:
		return time.Unix(0, n).UTC()
	case time.Microsecond:
		return time.UnixMicro(n).UTC()
	default:
		return time.UnixMilli(n).UTC()
	}
}

// julianUnixEpoch is the Julian day number of 1970-01-01.
const julianUnixEpoch = 2440588

// int96Cell decodes the legacy Impala timestamp: nanoseconds of the day in
// the low 8 bytes, Julian day in the high 4.
func int96Cell(v parquet.Value) any {
	x := v.Int96()
	nanos := int64(uint64(x[1])<<32 | uint64(x[0]))
	day := int64(x[2])
	return time.Unix((day-julianUnixEpoch)*86400, nanos).UTC()
}

// decimalValue returns the unscaled decimal as float64. Byte array decimals
// are big-endian two's complement.
func decimalValue(v parquet.Value) float64 {
	switch v.Kind() {
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	}

	b := v.ByteArray()
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

func parquetCell(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// encodeParquet writes a flat schema of optional leaves, one per column.
// Integer-only number columns are INT64, other numbers DOUBLE, booleans
// BOOLEAN, time columns microsecond TIMESTAMPs and everything else UTF-8
// strings.
func encodeParquet(w io.Writer, t *table.Table) error {
	cols := t.Columns()
	if len(cols) == 0 {
		return errors.New("cannot encode a table without columns")
	}

	kinds := make([]parquetKind, len(cols))
	group := make(parquet.Group, len(cols))
	for c, col := range cols {
		kinds[c] = parquetKindOf(t, c, col.Kind)
		group[col.Name] = parquet.Optional(kinds[c].node())
	}
	schema := parquet.NewSchema("table", group)

	// Group orders its fields by name, so map each column to its leaf index.
	leaf := make(map[string]int, len(cols))
	for i, p := range schema.Columns() {
		leaf[p[0]] = i
	}

	pw := parquet.NewWriter(w, schema)
	batch := make([]parquet.Row, 0, parquetBatchSize)

	for r := 0; r < t.NumRows(); r++ {
		row := make(parquet.Row, len(cols))
		for c, col := range cols {
			idx := leaf[col.Name]
			v := t.Value(r, c)
			if v == nil {
				row[idx] = parquet.NullValue().Level(0, 0, idx)
				continue
			}
			row[idx] = kinds[c].value(v).Level(0, 1, idx)
		}
		batch = append(batch, row)

		if len(batch) == cap(batch) {
			if _, err := pw.WriteRows(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := pw.WriteRows(batch); err != nil {
			return err
		}
	}

	return pw.Close()
}

type parquetKind int

const (
	parquetString parquetKind = iota
	parquetInt64
	parquetDouble
	parquetBool
	parquetTime
)

func parquetKindOf(t *table.Table, c int, k table.Kind) parquetKind {
	switch k {
	case table.KindBool:
		return parquetBool
	case table.KindNumber:
		for r := 0; r < t.NumRows(); r++ {
			if _, ok := t.Value(r, c).(float64); ok {
				return parquetDouble
			}
		}
		return parquetInt64
	case table.KindTime:
		for r := 0; r < t.NumRows(); r++ {
			if v := t.Value(r, c); v != nil {
				if _, ok := v.(time.Time); !ok {
					return parquetString
				}
			}
		}
		return parquetTime
	default:
		return parquetString
	}
}

func (k parquetKind) node() parquet.Node {
	switch k {
	case parquetInt64:
		return parquet.Int(64)
	case parquetDouble:
		return parquet.Leaf(parquet.DoubleType)
	case parquetBool:
		return parquet.Leaf(parquet.BooleanType)
	case parquetTime:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		return parquet.String()
	}
}

func (k parquetKind) value(v any) parquet.Value {
	switch k {
	case parquetInt64:
		return parquet.Int64Value(v.(int64))
	case parquetDouble:
		switch x := v.(type) {
		case int64:
			return parquet.DoubleValue(float64(x))
		case float64:
			return parquet.DoubleValue(x)
		}
	case parquetBool:
		if b, ok := v.(bool); ok {
			return parquet.BooleanValue(b)
		}
	case parquetTime:
		if ts, ok := v.(time.Time); ok {
			return parquet.Int64Value(ts.UnixMicro())
		}
	}
	return parquet.ByteArrayValue([]byte(table.Format(v)))
}
