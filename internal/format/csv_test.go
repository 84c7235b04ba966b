package format

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviz/internal/table"
)

func TestDecodeCSV_TenRowsThreeColumns(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,score,label\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "%d,%d.5,row%d\n", i, i, i)
	}

	tbl, err := Decode([]byte(b.String()), "scores.csv")
	require.NoError(t, err)
	assert.Equal(t, 10, tbl.NumRows())
	assert.Equal(t, 3, tbl.NumCols())
	assert.Equal(t, []string{"id", "score", "label"}, tbl.Names())
	assert.Equal(t, int64(10), tbl.Value(9, 0))
	assert.Equal(t, 10.5, tbl.Value(9, 1))
}

func TestDecodeCSV_SkipsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, "name,age\nalice,30\n"...)

	tbl, err := Decode(data, "people.csv")
	require.NoError(t, err)
	assert.Equal(t, "name", tbl.Names()[0])
}

func TestDecodeCSV_SanitizesInvalidUTF8(t *testing.T) {
	data := []byte("city\nM\xfcnchen\n")

	tbl, err := Decode(data, "cities.csv")
	require.NoError(t, err)
	assert.Equal(t, "M?nchen", tbl.Value(0, 0))
}

func TestDecodeCSV_ShortRowsPadded(t *testing.T) {
	tbl, err := Decode([]byte("a,b,c\n1,2\n"), "x.csv")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), nil}, tbl.Row(0))
}

func TestDecodeCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"long row", "a,b\n1,2,3\n"},
		{"bad quoting", "a,b\n\"unterminated,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), "broken.csv")
			var de *DecodeError
			require.True(t, errors.As(err, &de), "want *DecodeError, got %v", err)
			assert.Equal(t, TagCSV, de.Tag)
		})
	}
}

func TestDecodeCSV_HeaderOnly(t *testing.T) {
	tbl, err := Decode([]byte("a,b\n"), "x.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 2, tbl.NumCols())
}

func TestDecodeCSV_TypesBooleans(t *testing.T) {
	tbl, err := Decode([]byte("flag\ntrue\nFALSE\n"), "flags.csv")
	require.NoError(t, err)
	assert.Equal(t, table.KindBool, tbl.Columns()[0].Kind)
	assert.Equal(t, false, tbl.Value(1, 0))
}
