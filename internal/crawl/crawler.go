package crawl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/faculty-cli/internal/config"
	"github.com/sells-group/faculty-cli/internal/extract"
	"github.com/sells-group/faculty-cli/internal/model"
	"github.com/sells-group/faculty-cli/internal/store"
)

// repeatLimit terminates a crawl after this many consecutive pages whose
// content signature did not advance. Guards against pagination controls
// that resubmit the same page instead of failing.
const repeatLimit = 2

// Crawler drives the fetch → capture → follow-next loop for one seed,
// persisting every captured page into the page cache.
type Crawler struct {
	cfg   config.CrawlConfig
	cache *store.PageCache

	// newPager is swappable in tests. The default prefers the rendered
	// browser and transparently falls back to static HTTP when the
	// browser cannot initialize.
	newPager func() Pager
}

// NewCrawler creates a Crawler writing captures into cache.
func NewCrawler(cfg config.CrawlConfig, cache *store.PageCache) *Crawler {
	c := &Crawler{cfg: cfg, cache: cache}
	c.newPager = c.defaultPager
	return c
}

// WithPagerFactory overrides pager construction. For tests.
func (c *Crawler) WithPagerFactory(f func() Pager) *Crawler {
	c.newPager = f
	return c
}

func (c *Crawler) defaultPager() Pager {
	static := NewStaticPager(c.cfg.Timeout(), c.cfg.UserAgent, c.cfg.HostRate)
	if c.cfg.NoBrowser {
		return static
	}
	browser, err := NewBrowserPager(c.cfg.Timeout())
	if err != nil {
		zap.L().Info("crawl: browser unavailable, using static pager", zap.Error(err))
		return static
	}
	return browser
}

// Run crawls one seed from page 1 until a termination condition fires:
// two consecutive non-advancing signatures, no next-page control, or the
// configured page ceiling. Pages captured before a transport failure are
// returned alongside the error so the caller keeps partial work.
func (c *Crawler) Run(ctx context.Context, seed model.Seed, seedIndex int, sessionID string) ([]model.ListingPage, error) {
	pager := c.newPager()
	defer pager.Close()

	zap.L().Info("crawl: seed start",
		zap.String("pager", pager.Name()),
		zap.String("institution", seed.Institution),
		zap.Int("seed_index", seedIndex),
		zap.String("url", seed.ListURL),
	)

	var rows []model.ListingPage

	page, err := pager.Start(ctx, seed.ListURL)
	if err != nil {
		return nil, err
	}

	lastSignature := ""
	repeats := 0
	today := time.Now().Format("2006-01-02")

	for pageIndex := 1; pageIndex <= c.cfg.MaxPagesPerSeed; pageIndex++ {
		ref := ContentRef(seed.Institution, seedIndex, pageIndex)

		if err := c.cache.Put(ctx, store.CapturedPage{
			Ref:         ref,
			SessionID:   sessionID,
			Institution: seed.Institution,
			SeedIndex:   seedIndex,
			PageIndex:   pageIndex,
			URL:         page.URL,
			HTML:        page.HTML,
			FetchedAt:   time.Now(),
		}); err != nil {
			return rows, err
		}

		rows = append(rows, model.ListingPage{
			Department:  seed.Department,
			Institution: seed.Institution,
			SeedURL:     seed.ListURL,
			PageURL:     page.URL,
			PageIndex:   pageIndex,
			SeedIndex:   seedIndex,
			ContentRef:  ref,
			CrawlDate:   today,
		})

		signature := extract.Signature(page.HTML)
		if signature != "" && signature == lastSignature {
			repeats++
		} else {
			repeats = 0
		}
		lastSignature = signature

		if repeats >= repeatLimit {
			zap.L().Debug("crawl: signature stalled, stopping",
				zap.Int("seed_index", seedIndex),
				zap.Int("page_index", pageIndex),
			)
			break
		}

		if pageIndex == c.cfg.MaxPagesPerSeed {
			break
		}

		next, ok, err := pager.Next(ctx)
		if err != nil {
			return rows, err
		}
		if !ok {
			break
		}
		page = next
	}

	zap.L().Info("crawl: seed done",
		zap.Int("seed_index", seedIndex),
		zap.Int("pages", len(rows)),
	)
	return rows, nil
}
