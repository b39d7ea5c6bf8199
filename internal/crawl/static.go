package crawl

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// StaticPager follows next-page hyperlinks over plain HTTP. Works on
// listings whose pagination is ordinary links; the browser pager covers
// script-driven controls.
type StaticPager struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	hostRate rate.Limit

	visited map[string]struct{}
	current Page
}

// NewStaticPager creates a StaticPager with per-host politeness limiting.
func NewStaticPager(timeout time.Duration, userAgent string, hostRate float64) *StaticPager {
	if hostRate <= 0 {
		hostRate = 2
	}
	return &StaticPager{
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
		timeout:   timeout,
		limiters:  make(map[string]*rate.Limiter),
		hostRate:  rate.Limit(hostRate),
		visited:   make(map[string]struct{}),
	}
}

func (p *StaticPager) Name() string { return "static" }

func (p *StaticPager) Close() {}

func (p *StaticPager) Start(ctx context.Context, startURL string) (Page, error) {
	p.visited = map[string]struct{}{startURL: {}}
	page, err := p.fetch(ctx, startURL)
	if err != nil {
		return Page{}, err
	}
	p.current = page
	return page, nil
}

func (p *StaticPager) Next(ctx context.Context) (Page, bool, error) {
	nextURL := findNextURL(p.current.URL, p.current.HTML)
	if nextURL == "" {
		return Page{}, false, nil
	}
	if _, seen := p.visited[nextURL]; seen {
		// Pagination cycled back onto itself.
		return Page{}, false, nil
	}
	p.visited[nextURL] = struct{}{}

	page, err := p.fetch(ctx, nextURL)
	if err != nil {
		return Page{}, false, err
	}
	p.current = page
	return page, true, nil
}

func (p *StaticPager) fetch(ctx context.Context, pageURL string) (Page, error) {
	if err := p.waitHost(ctx, pageURL); err != nil {
		return Page{}, eris.Wrap(err, "static: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, eris.Wrap(err, "static: create request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Page{}, eris.Wrapf(err, "static: fetch %s", pageURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, eris.Errorf("static: fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Page{}, eris.Wrapf(err, "static: read %s", pageURL)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Page{URL: finalURL, HTML: decodeHTML(body, resp.Header.Get("Content-Type"))}, nil
}

func (p *StaticPager) waitHost(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	p.mu.Lock()
	limiter, ok := p.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(p.hostRate, 1)
		p.limiters[u.Host] = limiter
	}
	p.mu.Unlock()

	return limiter.Wait(ctx)
}

// findNextURL locates a next-page hyperlink in the page and resolves it
// against the current URL.
func findNextURL(currentURL, html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	base, baseErr := url.Parse(currentURL)

	var next string
	doc.Find("a").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href := strings.TrimSpace(anchor.AttrOr("href", ""))
		if href == "" || !isNextText(anchor.Text()) {
			return true
		}
		if baseErr != nil {
			next = href
			return false
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		next = base.ResolveReference(ref).String()
		return false
	})
	return next
}

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?\s*([A-Za-z0-9\-_]+)`)
	headerCharset = regexp.MustCompile(`(?i)charset=([A-Za-z0-9\-_]+)`)
)

// decodeHTML converts a fetched body to UTF-8. University listings still
// serve GBK/GB2312 routinely; charset comes from the Content-Type header
// first, then the meta tag, defaulting to UTF-8 as-is.
func decodeHTML(body []byte, contentType string) string {
	name := ""
	if m := headerCharset.FindStringSubmatch(contentType); m != nil {
		name = m[1]
	}
	if name == "" {
		if m := metaCharsetRe.FindSubmatch(body); m != nil {
			name = string(m[1])
		}
	}
	if name == "" || strings.EqualFold(name, "utf-8") {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
