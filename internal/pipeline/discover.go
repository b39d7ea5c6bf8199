// Package pipeline glues the stages together: each phase reads its inputs,
// filters out work already present in its own output store, does the
// remainder, and merges results back under the store's natural key. Each
// phase is the exclusive writer of its own store.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/faculty-cli/internal/config"
	"github.com/sells-group/faculty-cli/internal/crawl"
	"github.com/sells-group/faculty-cli/internal/extract"
	"github.com/sells-group/faculty-cli/internal/model"
	"github.com/sells-group/faculty-cli/internal/store"
	"github.com/sells-group/faculty-cli/pkg/deepseek"
)

// DiscoverOptions carries the discover-phase flags.
type DiscoverOptions struct {
	SeedStart int
	SeedLimit int
	Resume    bool
}

// DiscoverSummary reports phase-end counts.
type DiscoverSummary struct {
	SeedIssues     int
	FailedSeeds    int
	NewPages       int
	TotalPages     int
	NewCandidates  int
	TotalCandidate int
	NewNames       int
	TotalNames     int
	FailOpenBatch  int
}

func (s DiscoverSummary) String() string {
	return fmt.Sprintf(
		"discover finished: seed_issues=%d failed_seeds=%d new_pages=%d total_pages=%d new_candidates=%d total_candidates=%d new_names=%d total_names=%d fail_open_batches=%d",
		s.SeedIssues, s.FailedSeeds, s.NewPages, s.TotalPages,
		s.NewCandidates, s.TotalCandidate, s.NewNames, s.TotalNames, s.FailOpenBatch,
	)
}

// Discover runs the discovery phase: validate seeds, crawl pending seeds,
// extract candidates from captured pages, classify candidates into
// professor names.
func Discover(ctx context.Context, cfg *config.Config, client deepseek.Client, opts DiscoverOptions) (*DiscoverSummary, error) {
	summary := &DiscoverSummary{}

	seeds, issues, err := loadSeeds(cfg.Paths.SeedCSV)
	if err != nil {
		return nil, err
	}
	summary.SeedIssues = len(issues)
	if err := store.WriteJSONL(cfg.Paths.SeedIssues(), issues); err != nil {
		return nil, err
	}

	// Seed window.
	if opts.SeedStart > 0 {
		if opts.SeedStart >= len(seeds) {
			seeds = nil
		} else {
			seeds = seeds[opts.SeedStart:]
		}
	}
	if opts.SeedLimit > 0 && opts.SeedLimit < len(seeds) {
		seeds = seeds[:opts.SeedLimit]
	}

	var existingPages []model.ListingPage
	if opts.Resume {
		existingPages, err = store.ReadJSONL[model.ListingPage](cfg.Paths.ListingPages())
		if err != nil {
			return nil, err
		}
	}
	crawledSeeds := make(map[int]struct{}, len(existingPages))
	for _, page := range existingPages {
		crawledSeeds[page.SeedIndex] = struct{}{}
	}

	cache, err := store.NewPageCache(cfg.Paths.PageCacheDB())
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	if err := cache.Migrate(ctx); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	crawler := crawl.NewCrawler(cfg.Crawl, cache)

	var newPages []model.ListingPage
	for localIndex, seed := range seeds {
		seedIndex := opts.SeedStart + localIndex
		if opts.Resume {
			if _, done := crawledSeeds[seedIndex]; done {
				continue
			}
		}

		rows, err := crawler.Run(ctx, seed, seedIndex, sessionID)
		newPages = append(newPages, rows...)
		if err != nil {
			// Fatal for this seed path only; remaining seeds proceed.
			summary.FailedSeeds++
			zap.L().Error("discover: seed crawl failed",
				zap.Int("seed_index", seedIndex),
				zap.String("url", seed.ListURL),
				zap.Error(err),
			)
		}
	}
	summary.NewPages = len(newPages)

	pages := store.Merge(existingPages, newPages, model.ListingPage.Key)
	summary.TotalPages = len(pages)
	if err := store.WriteJSONL(cfg.Paths.ListingPages(), pages); err != nil {
		return nil, err
	}

	newCandidates, totalCandidates, err := extractCandidates(ctx, cfg, cache, pages, opts.Resume)
	if err != nil {
		return nil, err
	}
	summary.NewCandidates = newCandidates
	summary.TotalCandidate = len(totalCandidates)

	return classifyNames(ctx, cfg, client, totalCandidates, opts.Resume, summary)
}

func loadSeeds(path string) ([]model.Seed, []model.SeedIssue, error) {
	rows, err := store.ReadCSVRows(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "discover: load seeds")
	}
	seeds := make([]model.Seed, 0, len(rows))
	for _, row := range rows {
		seeds = append(seeds, model.Seed{
			Department:  row["department_name_zh"],
			Institution: row["school_name_zh"],
			ListURL:     row["faculty_list_url"],
		})
	}
	valid, issues := model.ValidateSeeds(seeds)
	return valid, issues, nil
}

// extractCandidates scans captured pages that have not been scanned yet
// and merges the results into the candidate store.
func extractCandidates(ctx context.Context, cfg *config.Config, cache *store.PageCache, pages []model.ListingPage, resume bool) (int, []model.NameCandidate, error) {
	var existing []model.NameCandidate
	if resume {
		var err error
		existing, err = store.ReadJSONL[model.NameCandidate](cfg.Paths.NameCandidates())
		if err != nil {
			return 0, nil, err
		}
	}
	scannedRefs := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		scannedRefs[c.ContentRef] = struct{}{}
	}

	var fresh []model.NameCandidate
	for _, page := range pages {
		if resume {
			if _, done := scannedRefs[page.ContentRef]; done {
				continue
			}
		}

		html, err := cache.GetHTML(ctx, page.ContentRef)
		if err != nil {
			return 0, nil, err
		}
		if html == "" {
			continue
		}

		for _, cand := range extract.Candidates(html, page.PageURL) {
			fresh = append(fresh, model.NameCandidate{
				Department:  page.Department,
				Institution: page.Institution,
				Name:        cand.Name,
				ProfileURL:  cand.Link,
				ContentRef:  page.ContentRef,
				PageURL:     page.PageURL,
				SeedIndex:   page.SeedIndex,
				CrawlDate:   page.CrawlDate,
			})
		}
	}

	merged := store.Merge(existing, fresh, model.NameCandidate.Key)
	if err := store.WriteJSONL(cfg.Paths.NameCandidates(), merged); err != nil {
		return 0, nil, err
	}
	return len(fresh), merged, nil
}

type group struct {
	department  string
	institution string
}

// classifyNames groups candidates per department+institution, skips names
// already present in the professor store, and runs the classification step.
func classifyNames(ctx context.Context, cfg *config.Config, client deepseek.Client, candidates []model.NameCandidate, resume bool, summary *DiscoverSummary) (*DiscoverSummary, error) {
	// Per-group candidate name → profile link; first non-empty link wins.
	groups := make(map[group]map[string]string)
	for _, c := range candidates {
		if c.Name == "" {
			continue
		}
		g := group{department: c.Department, institution: c.Institution}
		if groups[g] == nil {
			groups[g] = make(map[string]string)
		}
		if link, ok := groups[g][c.Name]; !ok || link == "" {
			if !ok || c.ProfileURL != "" {
				groups[g][c.Name] = c.ProfileURL
			}
		}
	}

	var existing []model.ProfessorName
	if resume {
		var err error
		existing, err = store.ReadJSONL[model.ProfessorName](cfg.Paths.ProfessorNames())
		if err != nil {
			return nil, err
		}
	}
	knownNames := make(map[group]map[string]struct{})
	for _, p := range existing {
		g := group{department: p.Department, institution: p.Institution}
		if knownNames[g] == nil {
			knownNames[g] = make(map[string]struct{})
		}
		if p.NameZH != "" {
			knownNames[g][p.NameZH] = struct{}{}
		}
		if p.NameEN != "" {
			knownNames[g][p.NameEN] = struct{}{}
		}
	}

	classifier := extract.NewClassifier(client)
	today := todayStr()

	// Deterministic group order keeps reruns and logs stable.
	ordered := make([]group, 0, len(groups))
	for g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].department != ordered[j].department {
			return ordered[i].department < ordered[j].department
		}
		return ordered[i].institution < ordered[j].institution
	})

	var fresh []model.ProfessorName
	for _, g := range ordered {
		candidateLinks := groups[g]

		names := make([]string, 0, len(candidateLinks))
		for name := range candidateLinks {
			if _, known := knownNames[g][name]; known {
				continue
			}
			names = append(names, name)
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)

		result := classifier.Classify(ctx, g.department, g.institution, names)
		summary.FailOpenBatch += result.FailOpen

		for _, name := range result.Accepted {
			row := model.ProfessorName{
				Department:  g.department,
				Institution: g.institution,
				ProfileURL:  candidateLinks[name],
				Source:      "discover",
				CrawlDate:   today,
			}
			switch extract.Kind(name) {
			case extract.KindZH:
				row.NameZH = name
			case extract.KindEN:
				row.NameEN = name
			default:
				continue
			}
			fresh = append(fresh, row)
		}
	}
	summary.NewNames = len(fresh)

	// Professor rows are immutable once written: first write wins.
	merged := store.MergeKeepFirst(existing, fresh, model.ProfessorName.Key)
	summary.TotalNames = len(merged)
	if err := store.WriteJSONL(cfg.Paths.ProfessorNames(), merged); err != nil {
		return nil, err
	}

	return summary, nil
}
