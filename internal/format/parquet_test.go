package format

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviz/internal/table"
)

type reading struct {
	Sensor string   `parquet:"sensor"`
	Value  float64  `parquet:"value"`
	Count  int64    `parquet:"count"`
	Ok     bool     `parquet:"ok"`
	Note   *string  `parquet:"note,optional"`
	Tags   []string `parquet:"tags,list"`
}

func TestDecodeParquet(t *testing.T) {
	note := "recalibrated"
	input := []reading{
		{Sensor: "s1", Value: 1.5, Count: 3, Ok: true, Note: &note},
		{Sensor: "s2", Value: -2, Count: 0, Ok: false},
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[reading](&buf)
	_, err := w.Write(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tbl, err := Decode(buf.Bytes(), "readings.parquet")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())

	assert.Equal(t, []any{"s1", "s2"}, column(t, tbl, "sensor"))
	assert.Equal(t, []any{1.5, -2.0}, column(t, tbl, "value"))
	assert.Equal(t, []any{int64(3), int64(0)}, column(t, tbl, "count"))
	assert.Equal(t, []any{true, false}, column(t, tbl, "ok"))
	assert.Equal(t, []any{"recalibrated", nil}, column(t, tbl, "note"))
	assert.Contains(t, tbl.Names(), "tags.list.element")
}

func TestDecodeParquet_Malformed(t *testing.T) {
	_, err := Decode([]byte("PAR1 but not really"), "broken.parquet")

	var de *DecodeError
	require.True(t, errors.As(err, &de), "want *DecodeError, got %v", err)
	assert.Equal(t, TagParquet, de.Tag)
}

func TestEncodeParquet_RejectsEmptySchema(t *testing.T) {
	tbl, err := Decode([]byte("[]"), "empty.json")
	require.NoError(t, err)

	assert.Error(t, Encode(&bytes.Buffer{}, tbl, TagParquet))
}

type event struct {
	Name string    `parquet:"name"`
	When time.Time `parquet:"when,timestamp(millisecond)"`
	Day  int32     `parquet:"day,date"`
}

func TestDecodeParquet_LogicalTypes(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[event](&buf)
	_, err := w.Write([]event{{Name: "launch", When: when, Day: 19724}})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tbl, err := Decode(buf.Bytes(), "events.parquet")
	require.NoError(t, err)

	kinds := map[string]table.Kind{}
	for _, c := range tbl.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, table.KindTime, kinds["when"])
	assert.Equal(t, table.KindTime, kinds["day"])

	gotWhen, ok := column(t, tbl, "when")[0].(time.Time)
	require.True(t, ok, "when should decode to time.Time")
	assert.True(t, when.Equal(gotWhen), "when = %v", gotWhen)

	gotDay, ok := column(t, tbl, "day")[0].(time.Time)
	require.True(t, ok, "day should decode to time.Time")
	assert.Equal(t, "2024-01-02", gotDay.Format(time.DateOnly))
}

func TestParquet_TimeColumnRoundTrip(t *testing.T) {
	src, err := Decode([]byte("id,seen\n1,2024-03-01\n2,2024-03-02\n"), "seen.csv")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, TagParquet))

	tbl, err := DecodeAs(buf.Bytes(), TagParquet)
	require.NoError(t, err)
	want := src.Value(1, 1).(time.Time)
	got, ok := column(t, tbl, "seen")[1].(time.Time)
	require.True(t, ok, "seen should stay a time column")
	assert.True(t, want.Equal(got), "seen = %v, want %v", got, want)
}

func TestDecodeParquet_CorruptInputNeverPanics(t *testing.T) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[reading](&buf)
	_, err := w.Write([]reading{{Sensor: "s1", Value: 1, Count: 1}, {Sensor: "s2", Value: 2, Count: 2}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	valid := buf.Bytes()

	for i := range valid {
		data := bytes.Clone(valid)
		data[i] ^= 0xff

		assert.NotPanics(t, func() {
			_, err := DecodeAs(data, TagParquet)
			if err != nil {
				var de *DecodeError
				assert.True(t, errors.As(err, &de), "byte %d: want *DecodeError, got %v", i, err)
			}
		}, "byte %d", i)
	}
}
