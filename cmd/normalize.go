package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/faculty-cli/internal/pipeline"
)

var (
	normalizeLimit          int
	normalizeNoResume       bool
	normalizeStrictDeepSeek bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Map school names to canonical institution codes",
	Long:  "Resolves bs/ms/phd school names through the alias table, asks DeepSeek for anything unmatched, and queues low-confidence answers for manual review instead of writing them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDeepSeekIf(normalizeStrictDeepSeek); err != nil {
			return err
		}

		summary, err := pipeline.Normalize(cmd.Context(), cfg, newDeepSeekClient(), pipeline.NormalizeOptions{
			Limit:  normalizeLimit,
			Resume: !normalizeNoResume,
		})
		if err != nil {
			return err
		}

		fmt.Println(summary.String())
		return nil
	},
}

func init() {
	normalizeCmd.Flags().IntVar(&normalizeLimit, "limit", 0, "normalize at most this many pending records (0 = all)")
	normalizeCmd.Flags().BoolVar(&normalizeNoResume, "no-resume", false, "re-normalize records already present in the normalized store")
	normalizeCmd.Flags().BoolVar(&normalizeStrictDeepSeek, "require-deepseek", false, "fail at startup when no DeepSeek key is configured")

	rootCmd.AddCommand(normalizeCmd)
}
