package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataviz/internal/core"
	"github.com/JonMunkholm/dataviz/internal/source"
	"github.com/JonMunkholm/dataviz/internal/table"
)

type resolveOptions struct {
	timeout  time.Duration
	maxBytes int64
}

func (o *resolveOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&o.timeout, "timeout", source.DefaultTimeout, "URL fetch timeout")
	cmd.Flags().Int64Var(&o.maxBytes, "max-bytes", source.DefaultMaxBytes, "Maximum size of a fetched body")
}

// resolve loads arg as a URL when it has an http(s) scheme and as a local
// file otherwise. Failures carry the same message the web UI would show.
func (o *resolveOptions) resolve(ctx context.Context, arg string) (*source.Result, error) {
	var in source.RawInput
	if lower := strings.ToLower(arg); strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		in.URL = arg
	} else {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%s: file is empty", arg)
		}
		in.Data = data
		in.Filename = filepath.Base(arg)
	}

	r := source.NewResolver(source.Options{Timeout: o.timeout, MaxBytes: o.maxBytes})
	res, err := r.Resolve(ctx, in)
	if err != nil {
		st := core.StatusFor(err)
		return nil, errors.New(st.Message)
	}
	return res, nil
}

func newInspectCmd() *cobra.Command {
	var (
		opts resolveOptions
		rows int
	)

	cmd := &cobra.Command{
		Use:   "inspect <file-or-url>",
		Short: "Show the columns and first rows of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.resolve(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(err.Error()))
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(res.Name)+" "+metaStyle.Render(fmt.Sprintf("%s · %s · %d bytes", res.Format, res.Origin, res.Size)))
			fmt.Fprintln(out, core.SuccessStatus(res.Table.NumRows(), res.Table.NumCols()).Message)
			fmt.Fprintln(out)
			fmt.Fprint(out, renderGrid([]string{"#", "column", "kind"}, columnRows(res.Table)))

			if rows > 0 && res.Table.NumRows() > 0 {
				fmt.Fprintln(out)
				fmt.Fprint(out, renderGrid(res.Table.Names(), previewRows(res.Table, rows)))
			}
			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of rows to preview (0 disables)")
	return cmd
}

func columnRows(t *table.Table) [][]string {
	cols := t.Columns()
	out := make([][]string, len(cols))
	for i, c := range cols {
		out[i] = []string{strconv.Itoa(i), c.Name, c.Kind.String()}
	}
	return out
}

func previewRows(t *table.Table, n int) [][]string {
	head := t.Head(n)
	out := make([][]string, len(head))
	for i, row := range head {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = table.Format(v)
		}
		out[i] = cells
	}
	return out
}
