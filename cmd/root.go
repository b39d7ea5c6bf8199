package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/faculty-cli/internal/config"
	"github.com/sells-group/faculty-cli/internal/resilience"
	"github.com/sells-group/faculty-cli/pkg/deepseek"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "faculty-cli",
	Short: "Faculty roster discovery and enrichment pipeline",
	Long:  "Crawls university faculty listing pages, classifies and enriches professor records via DeepSeek, normalizes institution names, exports a deduplicated roster.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newDeepSeekClient builds the capability client from configuration. The
// client may be disabled (no key); phases then run in deterministic-only
// mode unless strict mode was requested.
func newDeepSeekClient() deepseek.Client {
	return deepseek.NewClient(cfg.DeepSeek.Key,
		deepseek.WithBaseURL(cfg.DeepSeek.BaseURL),
		deepseek.WithModel(cfg.DeepSeek.Model),
		deepseek.WithHTTPClient(&http.Client{Timeout: cfg.DeepSeek.Timeout()}),
		deepseek.WithRetryConfig(resilience.RetryConfig{MaxAttempts: cfg.DeepSeek.MaxRetries}),
	)
}

func requireDeepSeekIf(strict bool) error {
	if !strict {
		return nil
	}
	return cfg.RequireDeepSeek()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
