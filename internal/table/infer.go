package table

import (
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the date formats recognized when typing textual columns.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// columnConverter inspects every non-empty cell of column c and returns the
// narrowest conversion that accepts all of them.
func columnConverter(records [][]string, c int) func(string) any {
	allInt, allFloat, allBool, allTime := true, true, true, true
	seen := false

	for _, rec := range records {
		if c >= len(rec) || rec[c] == "" {
			continue
		}
		seen = true
		v := strings.TrimSpace(rec[c])

		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(v); !ok {
				allBool = false
			}
		}
		if allTime {
			if _, ok := parseTime(v); !ok {
				allTime = false
			}
		}
		if !allInt && !allFloat && !allBool && !allTime {
			break
		}
	}

	switch {
	case !seen:
		return func(s string) any { return s }
	case allInt:
		return func(s string) any {
			n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			return n
		}
	case allFloat:
		return func(s string) any {
			f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
			return f
		}
	case allBool:
		return func(s string) any {
			b, _ := parseBool(strings.TrimSpace(s))
			return b
		}
	case allTime:
		return func(s string) any {
			t, _ := parseTime(strings.TrimSpace(s))
			return t
		}
	default:
		return func(s string) any { return s }
	}
}

// parseBool accepts true/false in any case.
// Unlike strconv.ParseBool it rejects "1" and "0" so integer columns stay numeric.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// kindOfValues infers the kind of column c from typed cells. Columns with
// mixed or no non-nil values are text.
func kindOfValues(rows [][]any, c int) Kind {
	kind := Kind(-1)
	for _, row := range rows {
		var k Kind
		switch row[c].(type) {
		case nil:
			continue
		case int64, float64:
			k = KindNumber
		case bool:
			k = KindBool
		case time.Time:
			k = KindTime
		default:
			return KindText
		}
		if kind >= 0 && kind != k {
			return KindText
		}
		kind = k
	}
	if kind < 0 {
		return KindText
	}
	return kind
}
