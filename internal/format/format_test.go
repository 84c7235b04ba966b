package format

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviz/internal/table"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Tag
		wantErr bool
	}{
		{"csv", "data.csv", TagCSV, false},
		{"uppercase", "DATA.CSV", TagCSV, false},
		{"json", "records.json", TagJSON, false},
		{"xlsx", "book.xlsx", TagXLSX, false},
		{"xls", "legacy.XLS", TagXLSX, false},
		{"parquet", "part-0001.parquet", TagParquet, false},
		{"pq", "part.pq", TagParquet, false},
		{"url", "https://example.com/files/data.csv", TagCSV, false},
		{"url query ignored", "https://example.com/data.csv?format=json", TagCSV, false},
		{"url fragment ignored", "https://example.com/data.json#top", TagJSON, false},
		{"multiple dots", "archive.2024.parquet", TagParquet, false},
		{"unknown extension", "notes.txt", TagUnknown, true},
		{"no extension", "README", TagUnknown, true},
		{"dotfile", ".csv", TagUnknown, true},
		{"trailing dot", "data.", TagUnknown, true},
		{"empty", "", TagUnknown, true},
		{"extension in directory only", "https://example.com/data.csv/download", TagUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_ErrorNamesExtension(t *testing.T) {
	_, err := Classify("notes.TXT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".txt")
}

func TestDecode_UnsupportedSkipsParsing(t *testing.T) {
	_, err := Decode([]byte("a,b\n1,2\n"), "data.txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	var de *DecodeError
	assert.False(t, errors.As(err, &de), "classification failure must not be a DecodeError")
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []Tag{TagCSV, TagJSON, TagXLSX, TagParquet}, Tags())

	c, ok := LookupName("parquet")
	require.True(t, ok)
	assert.Equal(t, TagParquet, c.Tag)

	_, ok = LookupName("xml")
	assert.False(t, ok)

	assert.Equal(t, []string{".xls", ".xlsx"}, Extensions(TagXLSX))
}

func TestRegister_PanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		Register(Codec{Tag: TagCSV})
	})
}

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		[]string{"id", "price", "name"},
		[][]any{
			{int64(1), 1.5, "alpha"},
			{int64(2), 2.25, "beta"},
			{int64(3), nil, "gamma"},
		},
	)
	require.NoError(t, err)
	return tbl
}

// column returns the values of the named column, so round trips through
// encodings that reorder columns can still be compared.
func column(t *testing.T, tbl *table.Table, name string) []any {
	t.Helper()
	for c, n := range tbl.Names() {
		if n == name {
			out := make([]any, tbl.NumRows())
			for r := range out {
				out[r] = tbl.Value(r, c)
			}
			return out
		}
	}
	t.Fatalf("column %q not found in %v", name, tbl.Names())
	return nil
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, tag := range Tags() {
		t.Run(tag.String(), func(t *testing.T) {
			want := sampleTable(t)

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, want, tag))

			got, err := DecodeAs(buf.Bytes(), tag)
			require.NoError(t, err)

			assert.Equal(t, want.NumRows(), got.NumRows())
			assert.ElementsMatch(t, want.Names(), got.Names())
			for _, name := range want.Names() {
				assert.Equal(t, column(t, want, name), column(t, got, name), "column %s", name)
			}
		})
	}
}

func TestEncode_UnknownTag(t *testing.T) {
	err := Encode(&bytes.Buffer{}, sampleTable(t), TagUnknown)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
