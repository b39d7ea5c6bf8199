package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><head><script>var x = "张伪";</script></head><body>
<nav><a href="/">首页</a><a href="/about">学院简介</a></nav>
<ul>
  <li><a href="/people/zhangsan">张三</a></li>
  <li><a href="profile?id=7">李四光</a></li>
  <li>王五 教授</li>
</ul>
<p>Our faculty includes Li Ming and John A. Smith.</p>
</body></html>`

func TestCandidates(t *testing.T) {
	candidates := Candidates(listingHTML, "https://cs.example.edu.cn/faculty/list.html")

	byName := make(map[string]string, len(candidates))
	for _, c := range candidates {
		byName[c.Name] = c.Link
	}

	require.Contains(t, byName, "张三")
	require.Contains(t, byName, "李四光")
	require.Contains(t, byName, "王五")
	require.Contains(t, byName, "Li Ming")
	require.Contains(t, byName, "John A. Smith")

	// navigation text rejected
	assert.NotContains(t, byName, "首页")
	assert.NotContains(t, byName, "学院简介")
	// script content never reaches the text scan
	assert.NotContains(t, byName, "张伪")

	// links resolved against the page URL
	assert.Equal(t, "https://cs.example.edu.cn/people/zhangsan", byName["张三"])
	assert.Equal(t, "https://cs.example.edu.cn/faculty/profile?id=7", byName["李四光"])
	// free-text occurrence carries no link
	assert.Equal(t, "", byName["王五"])
}

func TestCandidatesLinkWinsOverText(t *testing.T) {
	html := `<html><body><p>张三 is on the roster.</p><a href="/p/1">张三</a></body></html>`
	candidates := Candidates(html, "https://example.edu.cn/f/")

	require.Len(t, candidates, 1)
	assert.Equal(t, "张三", candidates[0].Name)
	assert.Equal(t, "https://example.edu.cn/p/1", candidates[0].Link)
}

func TestCandidatesSorted(t *testing.T) {
	html := `<body><a href="#">王五</a><a href="#">张三</a><a href="#">李四光</a></body>`
	candidates := Candidates(html, "")

	require.Len(t, candidates, 3)
	for i := 1; i < len(candidates); i++ {
		assert.Less(t, candidates[i-1].Name, candidates[i].Name)
	}
}

func TestSignature(t *testing.T) {
	pageA := `<body><a href="#">张三</a><a href="#">李四光</a></body>`
	pageB := `<body><a href="/elsewhere">李四光</a><p>张三</p></body>`
	pageC := `<body><a href="#">王五</a></body>`

	sigA := Signature(pageA)
	assert.NotEmpty(t, sigA)
	// same names, different markup: same fingerprint
	assert.Equal(t, sigA, Signature(pageB))
	assert.NotEqual(t, sigA, Signature(pageC))

	// a page with no candidates fingerprints to empty
	assert.Empty(t, Signature(`<body><a href="/">首页</a></body>`))
}
