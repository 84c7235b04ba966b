package table

import (
	"testing"
	"time"
)

func TestFromStrings_TypesColumns(t *testing.T) {
	header := []string{"id", "price", "active", "day", "name"}
	records := [][]string{
		{"1", "1.5", "true", "2024-01-15", "a"},
		{"2", "2", "False", "2024-01-16", "b"},
		{"3", "", "TRUE", "", "c"},
	}

	tbl, err := FromStrings(header, records)
	if err != nil {
		t.Fatalf("FromStrings() error = %v", err)
	}

	wantKinds := []Kind{KindNumber, KindNumber, KindBool, KindTime, KindText}
	for i, col := range tbl.Columns() {
		if col.Kind != wantKinds[i] {
			t.Errorf("column %q kind = %v, want %v", col.Name, col.Kind, wantKinds[i])
		}
	}

	if got := tbl.Value(0, 0); got != int64(1) {
		t.Errorf("Value(0,0) = %#v, want int64(1)", got)
	}
	if got := tbl.Value(1, 1); got != float64(2) {
		t.Errorf("Value(1,1) = %#v, want float64(2)", got)
	}
	if got := tbl.Value(2, 1); got != nil {
		t.Errorf("Value(2,1) = %#v, want nil", got)
	}
	if got := tbl.Value(1, 2); got != false {
		t.Errorf("Value(1,2) = %#v, want false", got)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if got, ok := tbl.Value(0, 3).(time.Time); !ok || !got.Equal(want) {
		t.Errorf("Value(0,3) = %#v, want %v", tbl.Value(0, 3), want)
	}
}

func TestFromStrings_IntegersAreNotBooleans(t *testing.T) {
	tbl, err := FromStrings([]string{"flag"}, [][]string{{"1"}, {"0"}})
	if err != nil {
		t.Fatalf("FromStrings() error = %v", err)
	}
	if got := tbl.Columns()[0].Kind; got != KindNumber {
		t.Errorf("kind = %v, want number", got)
	}
}

func TestFromStrings_RejectsLongRows(t *testing.T) {
	_, err := FromStrings([]string{"a", "b"}, [][]string{{"1", "2", "3"}})
	if err == nil {
		t.Fatal("FromStrings() expected error for row longer than header")
	}
}

func TestNew_PadsShortRows(t *testing.T) {
	tbl, err := New([]string{"a", "b", "c"}, [][]any{{"x"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	row := tbl.Row(0)
	if len(row) != 3 || row[1] != nil || row[2] != nil {
		t.Errorf("Row(0) = %#v, want [x <nil> <nil>]", row)
	}
}

func TestUniqueNames(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"distinct", []string{"a", "b"}, []string{"a", "b"}},
		{"repeated", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"collides with suffix", []string{"a", "a.1", "a"}, []string{"a", "a.1", "a.2"}},
		{"empty", []string{"", "x", ""}, []string{"Unnamed: 0", "x", "Unnamed: 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uniqueNames(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("uniqueNames() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("uniqueNames()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTable_AccessorsReturnCopies(t *testing.T) {
	tbl, err := New([]string{"a"}, [][]any{{"x"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	row := tbl.Row(0)
	row[0] = "mutated"
	cols := tbl.Columns()
	cols[0].Name = "mutated"

	if tbl.Value(0, 0) != "x" {
		t.Errorf("Row() leaked internal storage")
	}
	if tbl.Names()[0] != "a" {
		t.Errorf("Columns() leaked internal storage")
	}
}

func TestKindOfValues_Mixed(t *testing.T) {
	rows := [][]any{{int64(1)}, {"two"}, {nil}}
	if got := kindOfValues(rows, 0); got != KindText {
		t.Errorf("kindOfValues() = %v, want text", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{int64(42), "42"},
		{1.5, "1.5"},
		{true, "true"},
		{time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), "2024-02-03"},
		{time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), "2024-02-03T04:05:06Z"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
