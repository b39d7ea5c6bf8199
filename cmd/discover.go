package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/faculty-cli/internal/pipeline"
)

var (
	discoverSeedStart      int
	discoverSeedLimit      int
	discoverMaxPages       int
	discoverTimeout        int
	discoverNoResume       bool
	discoverNoBrowser      bool
	discoverStrictDeepSeek bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Crawl faculty listing pages and extract professor names",
	Long:  "Validates seed rows, crawls each pending listing through its pagination, extracts candidate names from captured pages and classifies them into professor records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeepSeekIf(discoverStrictDeepSeek); err != nil {
			return err
		}
		if discoverMaxPages > 0 {
			cfg.Crawl.MaxPagesPerSeed = discoverMaxPages
		}
		if discoverTimeout > 0 {
			cfg.Crawl.TimeoutSecs = discoverTimeout
		}
		if discoverNoBrowser {
			cfg.Crawl.NoBrowser = true
		}

		summary, err := pipeline.Discover(cmd.Context(), cfg, newDeepSeekClient(), pipeline.DiscoverOptions{
			SeedStart: discoverSeedStart,
			SeedLimit: discoverSeedLimit,
			Resume:    !discoverNoResume,
		})
		if err != nil {
			return err
		}

		fmt.Println(summary.String())
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&discoverSeedStart, "seed-start", 0, "index of the first seed row to crawl")
	discoverCmd.Flags().IntVar(&discoverSeedLimit, "seed-limit", 0, "crawl at most this many seeds (0 = all)")
	discoverCmd.Flags().IntVar(&discoverMaxPages, "max-pages", 0, "override max pages followed per seed")
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 0, "override per-fetch timeout in seconds")
	discoverCmd.Flags().BoolVar(&discoverNoResume, "no-resume", false, "re-crawl seeds already present in the listing store")
	discoverCmd.Flags().BoolVar(&discoverNoBrowser, "no-browser", false, "use plain HTTP pagination instead of a headless browser")
	discoverCmd.Flags().BoolVar(&discoverStrictDeepSeek, "require-deepseek", false, "fail at startup when no DeepSeek key is configured")

	rootCmd.AddCommand(discoverCmd)
}
