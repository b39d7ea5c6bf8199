package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/faculty-cli/internal/pipeline"
)

var (
	enrichLimit            int
	enrichWorkers          int
	enrichNoResume         bool
	enrichNoSearchFallback bool
	enrichStrictDeepSeek   bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill education and career fields on discovered professors",
	Long:  "For each professor not yet enriched, fetches the profile page, grounds an extraction on its text, then falls back to model knowledge for fields still missing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeepSeekIf(enrichStrictDeepSeek); err != nil {
			return err
		}
		workers := cfg.Enrich.Workers
		if enrichWorkers > 0 {
			workers = enrichWorkers
		}
		searchFallback := cfg.Enrich.SearchFallback
		if enrichNoSearchFallback {
			searchFallback = false
		}

		summary, err := pipeline.Enrich(cmd.Context(), cfg, newDeepSeekClient(), pipeline.EnrichOptions{
			Limit:          enrichLimit,
			Workers:        workers,
			Resume:         !enrichNoResume,
			SearchFallback: searchFallback,
		})
		if err != nil {
			return err
		}

		fmt.Println(summary.String())
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "enrich at most this many pending professors (0 = all)")
	enrichCmd.Flags().IntVar(&enrichWorkers, "workers", 0, "override concurrent enrichment workers")
	enrichCmd.Flags().BoolVar(&enrichNoResume, "no-resume", false, "re-enrich professors already present in the enriched store")
	enrichCmd.Flags().BoolVar(&enrichNoSearchFallback, "no-search-fallback", false, "skip the model-knowledge fallback for missing fields")
	enrichCmd.Flags().BoolVar(&enrichStrictDeepSeek, "require-deepseek", false, "fail at startup when no DeepSeek key is configured")

	rootCmd.AddCommand(enrichCmd)
}
