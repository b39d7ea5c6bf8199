// Package extract turns listing-page HTML into name candidates: heuristic
// token matching over link text and free text, a content signature for
// pagination loop detection, and a capability-backed classification step.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	zhNameRe = regexp.MustCompile(`^[\x{4e00}-\x{9fff}]{2,4}$`)
	enWordRe = regexp.MustCompile(`^[A-Za-z][A-Za-z\-'.]*$`)
)

// Navigational and organizational vocabulary seen on faculty listing pages.
// A candidate equal to or containing any of these is not a person.
var zhStopwords = []string{
	"导航", "门户", "概况", "简介", "历史", "学院", "新闻", "公告",
	"招生", "校友", "联系", "首页", "教研人员", "教师队伍", "快速",
	"主页", "北大", "网络", "课题组", "组长", "在职", "教师",
	"下一页", "上一页", "下页", "上页", "尾页",
}

var enStopwords = map[string]struct{}{
	"home": {}, "portal": {}, "about": {}, "overview": {}, "news": {},
	"notice": {}, "admission": {}, "alumni": {}, "contact": {},
	"faculty": {}, "teacher": {}, "staff": {}, "research": {},
	"group": {}, "navigation": {},
}

// NameKind labels which name slot a token belongs in.
type NameKind int

const (
	KindNone NameKind = iota
	KindZH
	KindEN
)

// NormalizeToken collapses runs of whitespace to single spaces and trims.
func NormalizeToken(token string) string {
	return strings.Join(strings.Fields(token), " ")
}

// IsZHName reports whether the token is a plausible Chinese personal name:
// 2-4 ideographs, not stop-word vocabulary.
func IsZHName(token string) bool {
	token = strings.TrimSpace(token)
	if !zhNameRe.MatchString(token) {
		return false
	}
	for _, stop := range zhStopwords {
		if strings.Contains(token, stop) {
			return false
		}
	}
	return true
}

// IsENName reports whether the token is a plausible Latin-script personal
// name: 2-3 letter-words, each upper-case or capitalized, no digits, no
// stop words, not all initials.
func IsENName(token string) bool {
	token = NormalizeToken(token)
	if token == "" {
		return false
	}
	for _, r := range token {
		if unicode.IsDigit(r) {
			return false
		}
	}

	words := strings.Split(token, " ")
	if len(words) < 2 || len(words) > 3 {
		return false
	}

	allSingle := true
	for _, word := range words {
		if !enWordRe.MatchString(word) {
			return false
		}
		if !validNameWordCase(word) {
			return false
		}
		if len(word) > 1 {
			allSingle = false
		}
	}
	if allSingle {
		return false
	}

	lower := strings.ToLower(token)
	if _, ok := enStopwords[lower]; ok {
		return false
	}
	for _, word := range strings.Split(lower, " ") {
		if _, ok := enStopwords[word]; ok {
			return false
		}
	}
	return true
}

// validNameWordCase accepts fully upper-case words and capitalized words
// whose tail is entirely lower-case.
func validNameWordCase(word string) bool {
	if word == strings.ToUpper(word) {
		return true
	}
	head := word[:1]
	tail := word[1:]
	return head == strings.ToUpper(head) && tail == strings.ToLower(tail)
}

// LooksLikeName reports whether the token passes either script heuristic.
func LooksLikeName(token string) bool {
	token = NormalizeToken(token)
	return IsZHName(token) || IsENName(token)
}

// Kind classifies the token into a name slot.
func Kind(token string) NameKind {
	token = NormalizeToken(token)
	switch {
	case IsZHName(token):
		return KindZH
	case IsENName(token):
		return KindEN
	default:
		return KindNone
	}
}
