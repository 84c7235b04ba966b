// Package widget builds the server half of the exploratory visualization
// widget: the field list and data payload the client-side explorer
// is mounted with, plus the HTML that hosts it.
//
// A View is built from a whole table or not at all. Build either returns a
// complete View or a *ConstructionError, never a partial result.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataviz/internal/table"
)

// Field describes one column to the explorer.
type Field struct {
	FID          string `json:"fid"`
	Name         string `json:"name"`
	SemanticType string `json:"semanticType"` // quantitative, nominal or temporal
	AnalyticType string `json:"analyticType"` // measure or dimension
}

// View is a fully constructed explorer instance.
type View struct {
	ID      string
	Title   string
	Fields  []Field
	Rows    int
	Cols    int
	Payload json.RawMessage // records, one object per row
	Preview [][]string      // first rows rendered as text for the fallback table

	scripts []string
	theme   string
}

// Config controls construction limits and client assets.
type Config struct {
	MaxCells    int      // rows*cols above this are rejected; 0 disables the limit
	PreviewRows int      // rows rendered in the HTML fallback table
	Scripts     []string // loaded in order by the page before mounting
	Theme       string   // "light", "dark" or "media"
}

// ConstructionError reports that a table could not be turned into a View.
type ConstructionError struct {
	Err error
}

func (e *ConstructionError) Error() string {
	return e.Err.Error()
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

var (
	ErrNoColumns  = errors.New("table has no columns")
	ErrTooLarge   = errors.New("table is too large to explore")
	ErrNilTable   = errors.New("no table")
	errEmptyField = errors.New("empty column name")
)

// Explorer builds Views.
type Explorer struct {
	cfg Config
}

// NewExplorer creates an Explorer.
func NewExplorer(cfg Config) *Explorer {
	if cfg.PreviewRows < 0 {
		cfg.PreviewRows = 0
	}
	if cfg.Theme == "" {
		cfg.Theme = "media"
	}
	return &Explorer{cfg: cfg}
}

// Build constructs a View titled title from t.
func (x *Explorer) Build(t *table.Table, title string) (*View, error) {
	if t == nil {
		return nil, &ConstructionError{Err: ErrNilTable}
	}
	if t.NumCols() == 0 {
		return nil, &ConstructionError{Err: ErrNoColumns}
	}
	if cells := t.NumRows() * t.NumCols(); x.cfg.MaxCells > 0 && cells > x.cfg.MaxCells {
		return nil, &ConstructionError{Err: fmt.Errorf("%w: %d cells exceeds limit of %d", ErrTooLarge, cells, x.cfg.MaxCells)}
	}

	fields, err := fieldsFor(t.Columns())
	if err != nil {
		return nil, &ConstructionError{Err: err}
	}

	payload, err := payloadFor(t)
	if err != nil {
		return nil, &ConstructionError{Err: fmt.Errorf("encode data: %w", err)}
	}

	preview := make([][]string, 0, min(x.cfg.PreviewRows, t.NumRows()))
	for _, row := range t.Head(x.cfg.PreviewRows) {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = table.Format(v)
		}
		preview = append(preview, cells)
	}

	return &View{
		ID:      "explorer-" + uuid.NewString(),
		Title:   title,
		Fields:  fields,
		Rows:    t.NumRows(),
		Cols:    t.NumCols(),
		Payload: payload,
		Preview: preview,
		scripts: x.cfg.Scripts,
		theme:   x.cfg.Theme,
	}, nil
}

// explorerSchema is the mount configuration read by the client.
type explorerSchema struct {
	Fields []Field `json:"fields"`
	Theme  string  `json:"theme"`
	Title  string  `json:"title"`
}

func (v *View) schema() explorerSchema {
	return explorerSchema{Fields: v.Fields, Theme: v.theme, Title: v.Title}
}

func fieldsFor(cols []table.Column) ([]Field, error) {
	fields := make([]Field, len(cols))
	seen := make(map[string]bool, len(cols))

	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d: %w", i, errEmptyField)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true

		f := Field{FID: c.Name, Name: c.Name}
		switch c.Kind {
		case table.KindNumber:
			f.SemanticType, f.AnalyticType = "quantitative", "measure"
		case table.KindTime:
			f.SemanticType, f.AnalyticType = "temporal", "dimension"
		default:
			f.SemanticType, f.AnalyticType = "nominal", "dimension"
		}
		fields[i] = f
	}
	return fields, nil
}

// payloadFor encodes t as an array of records keyed by column name.
func payloadFor(t *table.Table) (json.RawMessage, error) {
	names := t.Names()
	records := make([]map[string]any, t.NumRows())

	for r := range records {
		rec := make(map[string]any, len(names))
		for c, name := range names {
			rec[name] = payloadValue(t.Value(r, c))
		}
		records[r] = rec
	}
	return json.Marshal(records)
}

func payloadValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case []any:
		return table.Format(x)
	case nil, string, int64, bool:
		return x
	default:
		return table.Format(x)
	}
}
