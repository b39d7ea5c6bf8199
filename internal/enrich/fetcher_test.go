package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherTextIncludesHintedSecondaryPages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/zhang":
			fmt.Fprint(w, `<body><h1>张三</h1>
				<a href="/zhang/cv">个人简历</a>
				<a href="https://elsewhere.example.com/page">主页</a>
				<a href="/news">新闻</a></body>`)
		case "/zhang/cv":
			fmt.Fprint(w, `<body>本科毕业于北京大学</body>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewProfileFetcher(5*time.Second, "test-agent")
	text := f.Text(context.Background(), srv.URL+"/zhang")

	assert.Contains(t, text, "张三")
	// hinted same-domain page fetched and appended
	assert.Contains(t, text, "本科毕业于北京大学")
}

func TestFetcherTextStripsMarkupAndChrome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>tracker()</script></head>
			<body><nav>导航栏</nav><p>李四光 教授</p><footer>版权</footer></body></html>`)
	}))
	defer srv.Close()

	f := NewProfileFetcher(5*time.Second, "test-agent")
	text := f.Text(context.Background(), srv.URL)

	assert.Contains(t, text, "李四光 教授")
	assert.NotContains(t, text, "tracker")
	assert.NotContains(t, text, "导航栏")
	assert.NotContains(t, text, "版权")
}

func TestFetcherTextFailsSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewProfileFetcher(2*time.Second, "test-agent")
	assert.Empty(t, f.Text(context.Background(), srv.URL))
	assert.Empty(t, f.Text(context.Background(), "http://127.0.0.1:1/nothing"))
}

func TestSecondaryLinksCapAndDomainGuard(t *testing.T) {
	html := `<body>
		<a href="/cv1">简历一 个人简历</a>
		<a href="/cv2">简历二 个人简历</a>
		<a href="/cv3">简历三 个人简历</a>
		<a href="https://other.example.org/cv">外部 个人简历</a>
	</body>`

	links := secondaryLinks(html, "https://faculty.example.edu.cn/zhang")

	require.Len(t, links, 2)
	assert.Equal(t, "https://faculty.example.edu.cn/cv1", links[0])
	assert.Equal(t, "https://faculty.example.edu.cn/cv2", links[1])
}
