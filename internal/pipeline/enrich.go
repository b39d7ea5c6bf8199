package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sells-group/faculty-cli/internal/config"
	"github.com/sells-group/faculty-cli/internal/enrich"
	"github.com/sells-group/faculty-cli/internal/model"
	"github.com/sells-group/faculty-cli/internal/store"
	"github.com/sells-group/faculty-cli/pkg/deepseek"
)

// EnrichOptions carries the enrich-phase flags.
type EnrichOptions struct {
	Limit          int
	Workers        int
	Resume         bool
	SearchFallback bool
}

// EnrichSummary reports phase-end counts.
type EnrichSummary struct {
	Pending  int
	New      int
	Failed   int
	Complete int
	Total    int
}

func (s EnrichSummary) String() string {
	return fmt.Sprintf("enrich finished: pending=%d new=%d failed=%d complete=%d total=%d",
		s.Pending, s.New, s.Failed, s.Complete, s.Total)
}

// Enrich runs the enrichment phase over professor names not yet present in
// the enriched store.
func Enrich(ctx context.Context, cfg *config.Config, client deepseek.Client, opts EnrichOptions) (*EnrichSummary, error) {
	names, err := store.ReadJSONL[model.ProfessorName](cfg.Paths.ProfessorNames())
	if err != nil {
		return nil, err
	}

	var existing []model.EnrichedRecord
	if opts.Resume {
		existing, err = store.ReadJSONL[model.EnrichedRecord](cfg.Paths.Enriched())
		if err != nil {
			return nil, err
		}
	}

	done := store.Keys(existing, model.EnrichedRecord.Key)
	pending := store.Pending(names, done, model.ProfessorName.Key)
	if opts.Limit > 0 && opts.Limit < len(pending) {
		pending = pending[:opts.Limit]
	}

	summary := &EnrichSummary{Pending: len(pending)}

	fetcher := enrich.NewProfileFetcher(cfg.Crawl.Timeout(), cfg.Crawl.UserAgent)
	orch := enrich.NewOrchestrator(client, fetcher, opts.Workers, opts.SearchFallback)

	fresh := orch.Run(ctx, pending)
	summary.New = len(fresh)
	for _, rec := range fresh {
		if enrich.IsErrorNote(rec.Notes) {
			summary.Failed++
		}
	}

	merged := store.Merge(existing, fresh, model.EnrichedRecord.Key)
	// Status is derived; re-derive across the whole set on every write.
	for i := range merged {
		merged[i].Status = merged[i].CompletionStatus()
		if merged[i].Status == model.StatusComplete {
			summary.Complete++
		}
	}
	summary.Total = len(merged)

	if err := store.WriteJSONL(cfg.Paths.Enriched(), merged); err != nil {
		return nil, err
	}
	return summary, nil
}

func todayStr() string {
	return time.Now().Format("2006-01-02")
}
