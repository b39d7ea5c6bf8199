package crawl

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
)

// Element pattern for the one known scripted pagination bar, tried before
// the generic next-text scan.
const nextBarSelector = "#pageBarNextPageIdu12"

const (
	pageSettleWait = 1600 * time.Millisecond
	clickWait      = 1300 * time.Millisecond
)

// BrowserPager renders listings in headless Chrome and advances by
// clicking next-page controls, covering paginators that are script-driven
// rather than plain links.
type BrowserPager struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
}

// NewBrowserPager launches a headless browser. Any initialization failure
// (no local Chrome, launch error, connect error) is returned so the caller
// can fall back to the static pager.
func NewBrowserPager(timeout time.Duration) (*BrowserPager, error) {
	bin, has := launcher.LookPath()
	if !has {
		return nil, eris.New("browser: no local chrome found")
	}

	l := launcher.New().Bin(bin).Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, eris.Wrap(err, "browser: launch")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, eris.Wrap(err, "browser: connect")
	}

	return &BrowserPager{launcher: l, browser: b, timeout: timeout}, nil
}

func (p *BrowserPager) Name() string { return "browser" }

// Close shuts the tab, the browser, and the launched process down.
func (p *BrowserPager) Close() {
	if p.page != nil {
		_ = p.page.Close()
	}
	if p.browser != nil {
		_ = p.browser.Close()
	}
	if p.launcher != nil {
		p.launcher.Cleanup()
	}
}

func (p *BrowserPager) Start(ctx context.Context, startURL string) (Page, error) {
	page, err := p.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return Page{}, eris.Wrap(err, "browser: create tab")
	}
	p.page = page

	navCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(startURL); err != nil {
		return Page{}, eris.Wrapf(err, "browser: navigate %s", startURL)
	}
	// Scripted listings keep loading after the load event; a bounded wait
	// beats waiting for network idle on pages with long-polling beacons.
	_ = page.Context(navCtx).WaitLoad()
	time.Sleep(pageSettleWait)

	return p.snapshot(ctx)
}

func (p *BrowserPager) Next(ctx context.Context) (Page, bool, error) {
	clicked, err := p.clickNext(ctx)
	if err != nil {
		return Page{}, false, err
	}
	if !clicked {
		return Page{}, false, nil
	}
	time.Sleep(clickWait)

	page, err := p.snapshot(ctx)
	if err != nil {
		return Page{}, false, err
	}
	return page, true, nil
}

// clickNext tries the known pagination-bar element first, then any
// visible anchor/span/li whose text reads like a next-page control.
func (p *BrowserPager) clickNext(ctx context.Context) (bool, error) {
	clickCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	page := p.page.Context(clickCtx)

	if has, el, err := page.Has(nextBarSelector); err == nil && has {
		if tryClick(el) {
			return true, nil
		}
	}

	els, err := page.Elements("a, span, li")
	if err != nil {
		return false, eris.Wrap(err, "browser: query next controls")
	}
	for _, el := range els {
		text, err := el.Text()
		if err != nil || !isNextText(text) {
			continue
		}
		if tryClick(el) {
			return true, nil
		}
	}
	return false, nil
}

func tryClick(el *rod.Element) bool {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	return el.Click(proto.InputMouseButtonLeft, 1) == nil
}

func (p *BrowserPager) snapshot(ctx context.Context) (Page, error) {
	snapCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	page := p.page.Context(snapCtx)

	html, err := page.HTML()
	if err != nil {
		return Page{}, eris.Wrap(err, "browser: read html")
	}

	info, err := page.Info()
	if err != nil {
		return Page{}, eris.Wrap(err, "browser: read page info")
	}

	return Page{URL: info.URL, HTML: html}, nil
}
