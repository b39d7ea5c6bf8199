package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/faculty-cli/internal/pipeline"
)

var allStrictDeepSeek bool

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run discover, enrich, normalize and export in sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeepSeekIf(allStrictDeepSeek); err != nil {
			return err
		}
		client := newDeepSeekClient()
		ctx := cmd.Context()

		discoverSummary, err := pipeline.Discover(ctx, cfg, client, pipeline.DiscoverOptions{Resume: true})
		if err != nil {
			return err
		}
		fmt.Println(discoverSummary.String())

		enrichSummary, err := pipeline.Enrich(ctx, cfg, client, pipeline.EnrichOptions{
			Workers:        cfg.Enrich.Workers,
			Resume:         true,
			SearchFallback: cfg.Enrich.SearchFallback,
		})
		if err != nil {
			return err
		}
		fmt.Println(enrichSummary.String())

		normalizeSummary, err := pipeline.Normalize(ctx, cfg, client, pipeline.NormalizeOptions{Resume: true})
		if err != nil {
			return err
		}
		fmt.Println(normalizeSummary.String())

		exportSummary, err := pipeline.Export(cfg, pipeline.ExportOptions{})
		if err != nil {
			return err
		}
		fmt.Println(exportSummary.String())

		return nil
	},
}

func init() {
	allCmd.Flags().BoolVar(&allStrictDeepSeek, "require-deepseek", false, "fail at startup when no DeepSeek key is configured")

	rootCmd.AddCommand(allCmd)
}
