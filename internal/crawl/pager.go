// Package crawl drives the pagination-following discovery crawl. Two
// interchangeable pagers satisfy the same contract: a static HTTP
// link-follower and a rendered-browser strategy that clicks next-page
// controls. The Crawler owns loop termination: content-signature repeats
// and the page ceiling.
package crawl

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Page is one fetched listing page.
type Page struct {
	URL  string
	HTML string
}

// Pager steps through a paginated listing one page at a time.
type Pager interface {
	Name() string

	// Start navigates to the listing start URL and returns the first page.
	Start(ctx context.Context, startURL string) (Page, error)

	// Next advances to the following page. ok is false at natural end:
	// no next-page control found, or the control leads back to a page
	// already visited.
	Next(ctx context.Context) (page Page, ok bool, err error)

	// Close releases any resources held by the pager.
	Close()
}

// Vocabulary of next-page controls on the target listings.
var nextTexts = []string{"下一页", "下页", "next"}

func isNextText(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, t := range nextTexts {
		if t == "next" {
			if text == t {
				return true
			}
			continue
		}
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

var (
	slugSpaceRe = regexp.MustCompile(`\s+`)
	slugDropRe  = regexp.MustCompile(`[^\w\-\x{4e00}-\x{9fff}]`)
)

// ContentRef derives the stable capture key for a page: a filesystem-safe
// slug of the institution followed by the seed index and page ordinal.
// The institution is truncated before the indexes are appended so a long
// name cannot collapse a seed's pages onto one ref.
func ContentRef(institution string, seedIndex, pageIndex int) string {
	slug := slugSpaceRe.ReplaceAllString(strings.TrimSpace(institution), "-")
	slug = slugDropRe.ReplaceAllString(slug, "")
	if r := []rune(slug); len(r) > 80 {
		slug = string(r[:80])
	}
	if slug == "" {
		slug = "page"
	}
	return fmt.Sprintf("%s-%d-%d", slug, seedIndex, pageIndex)
}
