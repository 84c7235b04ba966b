package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/JonMunkholm/dataviz/internal/table"
)

func init() {
	Register(Codec{
		Tag:       TagJSON,
		Name:      "json",
		MediaType: "application/json",
		Extension: ".json",
		Decode:    decodeJSON,
		Encode:    encodeJSON,
	})
}

// object is a JSON object that remembers key order.
type object struct {
	keys   []string
	values []any
}

func (o *object) get(key string) (any, bool) {
	for i, k := range o.keys {
		if k == key {
			return o.values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the object back with its original key order.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeJSON accepts the layouts a dataframe commonly serializes to:
//
//	records  [{"a":1,"b":2}, ...]
//	values   [[1,2], ...]              columns named "0".."n-1"
//	columns  {"a":{"0":1}, ...} or {"a":[1, ...], ...}
//	split    {"columns":["a","b"], "data":[[1,2], ...]}
func decodeJSON(data []byte) (*table.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(normalizeText(data)))
	dec.UseNumber()

	root, err := readJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}

	switch v := root.(type) {
	case []any:
		return jsonFromArray(v)
	case *object:
		if isSplitLayout(v) {
			return jsonFromSplit(v)
		}
		return jsonFromColumns(v)
	default:
		return nil, errors.New("expected a JSON array or object at top level")
	}
}

func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			val, err := readJSONValue(dec)
			if err != nil {
				return nil, err
			}
			obj.keys = append(obj.keys, key)
			obj.values = append(obj.values, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := readJSONValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %q", delim)
}

func jsonFromArray(items []any) (*table.Table, error) {
	if len(items) == 0 {
		return table.New(nil, nil)
	}

	switch items[0].(type) {
	case *object:
		return jsonFromRecords(items)
	case []any:
		return jsonFromValues(items)
	default:
		return nil, errors.New("expected an array of objects or an array of arrays")
	}
}

func jsonFromRecords(items []any) (*table.Table, error) {
	var names []string
	index := make(map[string]int)
	records := make([]*object, len(items))

	for i, item := range items {
		rec, ok := item.(*object)
		if !ok {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		records[i] = rec
		for _, k := range rec.keys {
			if _, seen := index[k]; !seen {
				index[k] = len(names)
				names = append(names, k)
			}
		}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(names))
		for j, k := range rec.keys {
			row[index[k]] = jsonCell(rec.values[j])
		}
		rows[i] = row
	}
	return table.New(names, rows)
}

func jsonFromValues(items []any) (*table.Table, error) {
	width := 0
	for i, item := range items {
		arr, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d is not an array", i)
		}
		width = max(width, len(arr))
	}

	rows := make([][]any, len(items))
	for i, item := range items {
		arr := item.([]any)
		row := make([]any, len(arr))
		for j, v := range arr {
			row[j] = jsonCell(v)
		}
		rows[i] = row
	}
	return table.New(positionalNames(width), rows)
}

func isSplitLayout(o *object) bool {
	if _, ok := o.get("columns"); !ok {
		return false
	}
	if _, ok := o.get("data"); !ok {
		return false
	}
	for _, k := range o.keys {
		if k != "columns" && k != "data" && k != "index" {
			return false
		}
	}
	return true
}

func jsonFromSplit(o *object) (*table.Table, error) {
	rawCols, _ := o.get("columns")
	rawData, _ := o.get("data")

	cols, ok := rawCols.([]any)
	if !ok {
		return nil, errors.New(`"columns" must be an array`)
	}
	data, ok := rawData.([]any)
	if !ok {
		return nil, errors.New(`"data" must be an array`)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = table.Format(jsonCell(c))
	}

	rows := make([][]any, len(data))
	for i, item := range data {
		arr, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("data row %d is not an array", i)
		}
		row := make([]any, len(arr))
		for j, v := range arr {
			row[j] = jsonCell(v)
		}
		rows[i] = row
	}
	return table.New(names, rows)
}

// jsonFromColumns handles {"col": {"idx": v}} and {"col": [v, ...]}.
// Row order follows the first appearance of each index label.
func jsonFromColumns(o *object) (*table.Table, error) {
	var labels []string
	position := make(map[string]int)
	columns := make([]*object, len(o.keys))

	for i, name := range o.keys {
		var col *object
		switch v := o.values[i].(type) {
		case *object:
			col = v
		case []any:
			col = &object{keys: positionalNames(len(v)), values: v}
		default:
			return nil, fmt.Errorf("column %q: all scalar values need an index", name)
		}
		columns[i] = col
		for _, label := range col.keys {
			if _, seen := position[label]; !seen {
				position[label] = len(labels)
				labels = append(labels, label)
			}
		}
	}

	rows := make([][]any, len(labels))
	for r := range rows {
		rows[r] = make([]any, len(columns))
	}
	for c, col := range columns {
		for j, label := range col.keys {
			rows[position[label]][c] = jsonCell(col.values[j])
		}
	}
	return table.New(o.keys, rows)
}

// jsonCell converts a decoded JSON value to a table cell. Integral numbers
// become int64, other numbers float64, nested values their JSON text.
func jsonCell(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case *object, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return x
	}
}

func positionalNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

// encodeJSON writes the records layout, preserving column order.
func encodeJSON(w io.Writer, t *table.Table) error {
	names := t.Names()
	keys := make([][]byte, len(names))
	for i, n := range names {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		keys[i] = b
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for r := 0; r < t.NumRows(); r++ {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for c := range names {
			if c > 0 {
				buf.WriteByte(',')
			}
			val, err := json.Marshal(jsonSafe(t.Value(r, c)))
			if err != nil {
				return err
			}
			buf.Write(keys[c])
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// jsonSafe maps values encoding/json refuses (NaN, ±Inf) to null.
func jsonSafe(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
