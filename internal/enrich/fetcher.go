package enrich

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Anchor vocabulary that marks a link as another view of the same person's
// profile (CV, personal homepage).
var profileHints = []string{
	"resume", "cv", "profile", "homepage",
	"简历", "主页", "个人主页", "教师主页", "个人简介",
}

const (
	maxSecondaryLinks = 2
	maxProfileBytes   = 512 * 1024
)

// ProfileFetcher retrieves the text grounding for profile-based
// extraction: the profile page itself plus up to two same-domain pages it
// links to under profile-hint anchors. Fetch failures yield no text, never
// an error; enrichment proceeds with whatever it has.
type ProfileFetcher struct {
	client    *http.Client
	userAgent string
}

// NewProfileFetcher creates a fetcher with the given per-fetch timeout.
func NewProfileFetcher(timeout time.Duration, userAgent string) *ProfileFetcher {
	return &ProfileFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Text fetches the profile page and its hinted same-domain neighbors,
// returning their visible text joined, or "" when nothing was obtained.
func (f *ProfileFetcher) Text(ctx context.Context, profileURL string) string {
	html := f.fetch(ctx, profileURL)
	if html == "" {
		return ""
	}

	parts := []string{visibleText(html)}
	for _, link := range secondaryLinks(html, profileURL) {
		if secondary := f.fetch(ctx, link); secondary != "" {
			parts = append(parts, visibleText(secondary))
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func (f *ProfileFetcher) fetch(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("enrich: profile fetch failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return ""
	}
	return string(body)
}

// secondaryLinks collects up to two same-domain links whose anchor text
// matches the profile-hint vocabulary.
func secondaryLinks(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := map[string]struct{}{pageURL: {}}
	var links []string
	doc.Find("a").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(anchor.Text()))
		if text == "" || !matchesHint(text) {
			return true
		}
		href := strings.TrimSpace(anchor.AttrOr("href", ""))
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return true
		}
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return len(links) < maxSecondaryLinks
	})
	return links
}

func matchesHint(text string) bool {
	for _, hint := range profileHints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

// visibleText strips markup down to whitespace-collapsed visible text.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style,noscript,nav,footer").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
