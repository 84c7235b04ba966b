// Command datavizctl inspects and converts tabular datasets with the same
// resolver and codecs the server uses.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "datavizctl",
		Short: "Inspect and convert CSV, JSON, XLSX and Parquet datasets",
		Long: `datavizctl loads a dataset from a local file or an http(s) URL,
shows its inferred columns and first rows, and converts it between formats.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInspectCmd(), newConvertCmd(), newFormatsCmd())
	return rootCmd
}
