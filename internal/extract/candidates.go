package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is one extracted (name, optional profile link) pair.
type Candidate struct {
	Name string
	Link string
}

var (
	tokenSplitRe = regexp.MustCompile(`[\s,，。；;：:、|/()（）\[\]<>《》‘’“”\-]+`)
	latinRunRe   = regexp.MustCompile(`\b[A-Z][A-Za-z\-'.]*(?:\s+[A-Z][A-Za-z\-'.]*){0,2}\b`)
)

// Candidates scans page HTML for name-like tokens. Three scans are
// unioned: hyperlink texts, whitespace/punctuation-delimited tokens of the
// visible text, and capitalized Latin runs. For a repeated name the
// occurrence carrying a non-empty link wins. Output is sorted by name.
func Candidates(html, pageURL string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	type pair struct{ name, link string }
	var pairs []pair

	doc.Find("a").Each(func(_ int, anchor *goquery.Selection) {
		text := NormalizeToken(anchor.Text())
		if !LooksLikeName(text) {
			return
		}
		href := strings.TrimSpace(anchor.AttrOr("href", ""))
		pairs = append(pairs, pair{name: text, link: resolveLink(pageURL, href)})
	})

	doc.Find("script,style,noscript").Remove()
	rawText := doc.Text()

	for _, token := range tokenSplitRe.Split(rawText, -1) {
		token = NormalizeToken(token)
		if LooksLikeName(token) {
			pairs = append(pairs, pair{name: token})
		}
	}

	for _, run := range latinRunRe.FindAllString(rawText, -1) {
		token := NormalizeToken(run)
		if LooksLikeName(token) {
			pairs = append(pairs, pair{name: token})
		}
	}

	dedup := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if existing, ok := dedup[p.name]; !ok || (existing == "" && p.link != "") {
			dedup[p.name] = p.link
		}
	}

	out := make([]Candidate, 0, len(dedup))
	for name, link := range dedup {
		out = append(out, Candidate{Name: name, Link: link})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// signatureWidth bounds how many names feed the page fingerprint.
const signatureWidth = 20

// Signature fingerprints a page's extracted content for pagination loop
// detection: the first names of the sorted candidate set, joined. Two
// pages with equal signatures carry the same new content. Pure function.
func Signature(html string) string {
	candidates := Candidates(html, "")
	names := make([]string, 0, signatureWidth)
	for _, c := range candidates {
		names = append(names, c.Name)
		if len(names) == signatureWidth {
			break
		}
	}
	return strings.Join(names, "|")
}

// resolveLink makes href absolute against the page URL. Empty href stays
// empty rather than aliasing the page itself.
func resolveLink(pageURL, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
