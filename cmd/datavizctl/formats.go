package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataviz/internal/format"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported formats and their extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, c := range format.All() {
				rows = append(rows, []string{c.Tag.String(), c.Name, strings.Join(format.Extensions(c.Tag), " "), c.MediaType})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderGrid([]string{"format", "name", "extensions", "media type"}, rows))
			return nil
		},
	}
}
