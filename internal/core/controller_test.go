package core

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/JonMunkholm/dataviz/internal/source"
	"github.com/JonMunkholm/dataviz/internal/table"
	"github.com/JonMunkholm/dataviz/internal/widget"
)

type resolverFunc func(ctx context.Context, in source.RawInput) (*source.Result, error)

func (f resolverFunc) Resolve(ctx context.Context, in source.RawInput) (*source.Result, error) {
	return f(ctx, in)
}

type builderFunc func(t *table.Table, title string) (*widget.View, error)

func (f builderFunc) Build(t *table.Table, title string) (*widget.View, error) {
	return f(t, title)
}

func newPipelineController() *Controller {
	return NewController(source.NewResolver(source.Options{}), widget.NewExplorer(widget.Config{PreviewRows: 5}))
}

func csvRows(n int) []byte {
	var b bytes.Buffer
	b.WriteString("id,name,score\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,item%d,%d.25\n", i, i, i)
	}
	return b.Bytes()
}

func TestController_LoadUpload(t *testing.T) {
	c := newPipelineController()

	snap := c.Load(context.Background(), source.RawInput{Data: csvRows(10), Filename: "items.csv"})

	if snap.State != StateDisplayed {
		t.Fatalf("State = %v, want displayed (status %q)", snap.State, snap.Status.Message)
	}
	if snap.Status.Message != "Loaded 10 rows and 3 columns." {
		t.Errorf("Status.Message = %q", snap.Status.Message)
	}
	if snap.Status.Kind != StatusSuccess {
		t.Errorf("Status.Kind = %q, want success", snap.Status.Kind)
	}
	if snap.View == nil || snap.Table == nil {
		t.Fatal("displayed snapshot must carry view and table")
	}
	if snap.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", snap.Attempt)
	}
	if snap.Source != "items.csv" || snap.Origin != "upload" || snap.Format != "CSV" {
		t.Errorf("Source/Origin/Format = %q/%q/%q", snap.Source, snap.Origin, snap.Format)
	}
}

func TestController_LoadFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	tests := []struct {
		name       string
		in         source.RawInput
		wantPrefix string
	}{
		{"no input", source.RawInput{}, "No file or URL provided."},
		{"malformed xlsx", source.RawInput{Data: []byte("not a workbook"), Filename: "book.xlsx"}, "Error reading uploaded file: "},
		{"unsupported upload", source.RawInput{Data: []byte("x"), Filename: "notes.txt"}, "Error reading uploaded file: "},
		{"missing url", source.RawInput{URL: srv.URL + "/missing.csv"}, "Error fetching/reading URL: "},
		{"empty table", source.RawInput{Data: []byte("[]"), Filename: "empty.json"}, "Error creating visualization: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newPipelineController()
			snap := c.Load(context.Background(), tt.in)

			if snap.State != StateFailed {
				t.Fatalf("State = %v, want failed", snap.State)
			}
			if !strings.HasPrefix(snap.Status.Message, tt.wantPrefix) {
				t.Errorf("Status.Message = %q, want prefix %q", snap.Status.Message, tt.wantPrefix)
			}
			if snap.View != nil || snap.Table != nil {
				t.Error("failed snapshot must not carry output")
			}
		})
	}
}

func TestController_FailureClearsPreviousOutput(t *testing.T) {
	c := newPipelineController()

	first := c.Load(context.Background(), source.RawInput{Data: csvRows(2), Filename: "a.csv"})
	if first.State != StateDisplayed {
		t.Fatalf("first load State = %v", first.State)
	}

	second := c.Load(context.Background(), source.RawInput{})
	if second.State != StateFailed || second.View != nil {
		t.Errorf("second load = %v with view %v, want failed with no output", second.State, second.View)
	}
	if second.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", second.Attempt)
	}
}

func TestController_WidgetFailure(t *testing.T) {
	res := resolverFunc(func(ctx context.Context, in source.RawInput) (*source.Result, error) {
		tbl, _ := table.New([]string{"a"}, [][]any{{int64(1)}})
		return &source.Result{Table: tbl, Origin: source.OriginUpload, Name: "a.csv"}, nil
	})
	build := builderFunc(func(*table.Table, string) (*widget.View, error) {
		return nil, &widget.ConstructionError{Err: fmt.Errorf("renderer unavailable")}
	})

	snap := NewController(res, build).Load(context.Background(), source.RawInput{Data: []byte("x"), Filename: "a.csv"})

	if snap.State != StateFailed {
		t.Fatalf("State = %v, want failed", snap.State)
	}
	if snap.Status.Message != "Error creating visualization: renderer unavailable" {
		t.Errorf("Status.Message = %q", snap.Status.Message)
	}
	if snap.Table != nil {
		t.Error("table must be discarded when the view cannot be built")
	}
}

func TestController_StagePanicEndsInFailure(t *testing.T) {
	res := resolverFunc(func(ctx context.Context, in source.RawInput) (*source.Result, error) {
		panic("makeslice: len out of range")
	})
	c := NewController(res, widget.NewExplorer(widget.Config{}))

	snap := c.Load(context.Background(), source.RawInput{Data: []byte("PAR1"), Filename: "x.parquet"})

	if snap.State != StateFailed {
		t.Fatalf("State = %v, want failed", snap.State)
	}
	if snap.Status.Kind != StatusError || snap.Status.Message == "" {
		t.Errorf("Status = %+v, want an error status", snap.Status)
	}
	if got := c.Snapshot().State; got != StateFailed {
		t.Errorf("Snapshot().State = %v, want failed", got)
	}
}

type countRow struct {
	Name  string `parquet:"name"`
	Count int64  `parquet:"count"`
}

func TestController_CorruptParquetUpload(t *testing.T) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[countRow](&buf)
	if _, err := w.Write([]countRow{{"a", 1}, {"b", 2}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()
	c := newPipelineController()

	for i := range valid {
		data := bytes.Clone(valid)
		data[i] ^= 0xff

		snap := c.Load(context.Background(), source.RawInput{Data: data, Filename: "x.parquet"})
		if snap.State != StateFailed && snap.State != StateDisplayed {
			t.Fatalf("byte %d: State = %v, want failed or displayed", i, snap.State)
		}
		if snap.State == StateFailed && !strings.HasPrefix(snap.Status.Message, "Error ") {
			t.Errorf("byte %d: Status.Message = %q", i, snap.Status.Message)
		}
	}
}

func TestController_StaleAttemptDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	res := resolverFunc(func(ctx context.Context, in source.RawInput) (*source.Result, error) {
		if in.Filename == "slow.csv" {
			close(started)
			<-release
		}
		tbl, _ := table.New([]string{in.Filename}, nil)
		return &source.Result{Table: tbl, Origin: source.OriginUpload, Name: in.Filename}, nil
	})
	c := NewController(res, widget.NewExplorer(widget.Config{}))

	slowDone := make(chan Snapshot, 1)
	go func() {
		slowDone <- c.Load(context.Background(), source.RawInput{Data: []byte("x"), Filename: "slow.csv"})
	}()
	<-started

	fast := c.Load(context.Background(), source.RawInput{Data: []byte("x"), Filename: "fast.csv"})
	if fast.State != StateDisplayed || fast.Source != "fast.csv" {
		t.Fatalf("fast attempt = %v %q", fast.State, fast.Source)
	}

	close(release)
	select {
	case <-slowDone:
	case <-time.After(time.Second):
		t.Fatal("slow attempt did not finish")
	}

	final := c.Snapshot()
	if final.Source != "fast.csv" || final.Attempt != 2 {
		t.Errorf("final snapshot = attempt %d %q, want attempt 2 fast.csv", final.Attempt, final.Source)
	}
}

func TestController_SubscribeSeesTransitions(t *testing.T) {
	c := newPipelineController()
	ch, cancel := c.Subscribe()
	defer cancel()

	if first := <-ch; first.State != StateIdle {
		t.Fatalf("initial snapshot State = %v, want idle", first.State)
	}

	c.Load(context.Background(), source.RawInput{Data: csvRows(1), Filename: "a.csv"})

	var states []State
	for len(states) < 2 {
		select {
		case s := <-ch:
			states = append(states, s.State)
		case <-time.After(time.Second):
			t.Fatalf("got states %v, want loading then displayed", states)
		}
	}
	if states[0] != StateLoading || states[1] != StateDisplayed {
		t.Errorf("states = %v, want [loading displayed]", states)
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
}

func TestController_BusyLimiter(t *testing.T) {
	limiter := NewLoadLimiter(1, 20*time.Millisecond)
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer limiter.Release()

	c := NewController(source.NewResolver(source.Options{}), widget.NewExplorer(widget.Config{}), WithLimiter(limiter))
	snap := c.Load(context.Background(), source.RawInput{Data: csvRows(1), Filename: "a.csv"})

	if snap.Status.Message != "Server is busy loading other datasets. Please try again." {
		t.Errorf("Status.Message = %q", snap.Status.Message)
	}
}
