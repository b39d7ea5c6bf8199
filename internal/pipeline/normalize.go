package pipeline

import (
	"context"
	"fmt"

	"github.com/sells-group/faculty-cli/internal/config"
	"github.com/sells-group/faculty-cli/internal/model"
	"github.com/sells-group/faculty-cli/internal/normalize"
	"github.com/sells-group/faculty-cli/internal/store"
	"github.com/sells-group/faculty-cli/pkg/deepseek"
)

// NormalizeOptions carries the normalize-phase flags.
type NormalizeOptions struct {
	Limit  int
	Resume bool
}

// NormalizeSummary reports phase-end counts.
type NormalizeSummary struct {
	Pending    int
	New        int
	Total      int
	NewReviews int
}

func (s NormalizeSummary) String() string {
	return fmt.Sprintf("normalize finished: pending=%d new=%d total=%d new_reviews=%d",
		s.Pending, s.New, s.Total, s.NewReviews)
}

// Normalize resolves institution names on enriched records not yet present
// in the normalized store, queueing unresolved values for manual review.
func Normalize(ctx context.Context, cfg *config.Config, client deepseek.Client, opts NormalizeOptions) (*NormalizeSummary, error) {
	records, err := store.ReadJSONL[model.EnrichedRecord](cfg.Paths.Enriched())
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && opts.Limit < len(records) {
		records = records[:opts.Limit]
	}

	var existing []model.EnrichedRecord
	if opts.Resume {
		existing, err = store.ReadJSONL[model.EnrichedRecord](cfg.Paths.Normalized())
		if err != nil {
			return nil, err
		}
	}

	// The review queue holds manual-review state, so it is loaded even on
	// non-resume runs: a triple enters it exactly once, ever.
	existingReviews, err := store.ReadJSONL[model.ReviewItem](cfg.Paths.ReviewQueue())
	if err != nil {
		return nil, err
	}

	done := store.Keys(existing, model.EnrichedRecord.Key)
	pending := store.Pending(records, done, model.EnrichedRecord.Key)

	summary := &NormalizeSummary{Pending: len(pending)}

	table := normalize.DefaultAliasTable()
	if cfg.Normalize.AliasFile != "" {
		table, err = normalize.LoadAliasFile(cfg.Normalize.AliasFile)
		if err != nil {
			return nil, err
		}
	}
	resolver := normalize.NewResolver(client, table, cfg.Normalize.ConfidenceThreshold)

	fresh, reviews := resolver.Normalize(ctx, pending)
	summary.New = len(fresh)

	merged := store.Merge(existing, fresh, model.EnrichedRecord.Key)
	for i := range merged {
		merged[i].Status = merged[i].CompletionStatus()
	}
	summary.Total = len(merged)

	// A review triple enters the queue exactly once across reruns.
	mergedReviews := store.MergeKeepFirst(existingReviews, reviews, model.ReviewItem.Key)
	summary.NewReviews = len(mergedReviews) - len(existingReviews)

	if err := store.WriteJSONL(cfg.Paths.ReviewQueue(), mergedReviews); err != nil {
		return nil, err
	}
	if err := store.WriteJSONL(cfg.Paths.Normalized(), merged); err != nil {
		return nil, err
	}
	return summary, nil
}
