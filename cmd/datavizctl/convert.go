package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataviz/internal/format"
)

func newConvertCmd() *cobra.Command {
	var (
		opts resolveOptions
		to   string
	)

	cmd := &cobra.Command{
		Use:   "convert <file-or-url> <output>",
		Short: "Convert a dataset to another format",
		Long: `convert decodes the input and re-encodes it in the format named by the
output extension, or by --to. Use "-" as output to write to stdout.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := args[1]

			tag, err := outputTag(dest, to)
			if err != nil {
				return err
			}

			res, err := opts.resolve(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(err.Error()))
				return err
			}

			var buf bytes.Buffer
			if err := format.Encode(&buf, res.Table, tag); err != nil {
				return err
			}

			if dest == "-" {
				_, err := buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), metaStyle.Render(fmt.Sprintf("wrote %s (%s, %d rows, %d bytes)", dest, tag, res.Table.NumRows(), buf.Len())))
			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Output format name (csv, json, xlsx, parquet); defaults to the output extension")
	return cmd
}

// outputTag picks the target format from --to or the output name.
func outputTag(dest, to string) (format.Tag, error) {
	if to != "" {
		c, ok := format.LookupName(to)
		if !ok {
			return format.TagUnknown, fmt.Errorf("%w: %s", format.ErrUnsupportedFormat, to)
		}
		return c.Tag, nil
	}
	if dest == "-" {
		return format.TagUnknown, fmt.Errorf("--to is required when writing to stdout")
	}
	return format.Classify(dest)
}
