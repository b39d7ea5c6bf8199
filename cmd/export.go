package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/faculty-cli/internal/pipeline"
)

var exportXLSX bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the final roster CSV from the normalized store",
	Long:  "Projects normalized records onto the template header, merges with any prior export so manual edits survive, and writes the output CSV (optionally mirrored to XLSX).",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := pipeline.Export(cfg, pipeline.ExportOptions{XLSX: exportXLSX})
		if err != nil {
			return err
		}

		fmt.Println(summary.String())
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportXLSX, "xlsx", false, "also write an XLSX mirror of the output CSV")

	rootCmd.AddCommand(exportCmd)
}
