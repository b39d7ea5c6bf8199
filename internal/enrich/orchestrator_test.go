package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/faculty-cli/internal/model"
)

type stubClient struct {
	enabled bool
	reply   func(prompt string) (string, error)
}

func (s *stubClient) ChatJSON(ctx context.Context, prompt string, temperature float64) (string, error) {
	return s.reply(prompt)
}

func (s *stubClient) Enabled() bool { return s.enabled }

func testFetcher() *ProfileFetcher {
	return NewProfileFetcher(5*time.Second, "test-agent")
}

var pendingName = model.ProfessorName{
	Department:  "计算机学院",
	Institution: "北京大学",
	NameZH:      "张三",
}

func TestRunDisabledClient(t *testing.T) {
	o := NewOrchestrator(&stubClient{enabled: false}, testFetcher(), 2, true)

	out := o.Run(context.Background(), []model.ProfessorName{pendingName})

	require.Len(t, out, 1)
	assert.Equal(t, "张三", out[0].NameZH)
	assert.Equal(t, model.StatusIncomplete, out[0].Status)
	assert.Empty(t, out[0].BSSchool)
}

func TestRunOneRecordPerInput(t *testing.T) {
	client := &stubClient{
		enabled: true,
		reply: func(string) (string, error) {
			return "", eris.New("quota exceeded")
		},
	}
	o := NewOrchestrator(client, testFetcher(), 3, true)

	pending := []model.ProfessorName{
		{Department: "d", Institution: "i", NameZH: "张三"},
		{Department: "d", Institution: "i", NameZH: "李四光"},
		{Department: "d", Institution: "i", NameEN: "Li Ming"},
	}
	out := o.Run(context.Background(), pending)

	require.Len(t, out, 3)
	keys := make(map[string]struct{}, len(out))
	for _, rec := range out {
		keys[rec.Key().String()] = struct{}{}
		assert.Equal(t, model.StatusIncomplete, rec.Status)
		assert.Contains(t, rec.Notes, "deepseek_error")
	}
	assert.Len(t, keys, 3)
}

func TestEnrichOneSearchFallbackFillsOnlyMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<body><p>张三，教授。本科毕业于北京大学。</p></body>`)
	}))
	defer srv.Close()

	client := &stubClient{enabled: true}
	client.reply = func(prompt string) (string, error) {
		if strings.Contains(prompt, "网页文本") {
			// profile grounding finds the bachelor school only
			return `{"name_en":"","title":"教授","profile_url":"","bs_school":"北京大学","ms_school":"","phd_school":"","join_year":"","notes":""}`, nil
		}
		// fallback proposes everything, including a conflicting bs_school
		return `{"name_en":"Zhang San","title":"讲师","profile_url":"","bs_school":"清华大学","ms_school":"","phd_school":"MIT","join_year":"2019年","notes":""}`, nil
	}

	o := NewOrchestrator(client, testFetcher(), 1, true)
	name := pendingName
	name.ProfileURL = srv.URL

	rec := o.enrichOne(context.Background(), name)

	// grounded values survive the fallback
	assert.Equal(t, "北京大学", rec.BSSchool)
	assert.Equal(t, "教授", rec.Title)
	// gaps are filled
	assert.Equal(t, "Zhang San", rec.NameEN)
	assert.Equal(t, "MIT", rec.PhDSchool)
	// year reduced to digits
	assert.Equal(t, "2019", rec.JoinYear)
	assert.Equal(t, model.StatusComplete, rec.Status)
}

func TestEnrichOneCompleteProfileSkipsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<body>profile</body>`)
	}))
	defer srv.Close()

	var fallbackCalled bool
	client := &stubClient{enabled: true}
	client.reply = func(prompt string) (string, error) {
		if strings.Contains(prompt, "网页文本") {
			return `{"name_en":"Zhang San","title":"教授","profile_url":"","bs_school":"PKU","ms_school":"","phd_school":"MIT","join_year":"2015","notes":""}`, nil
		}
		fallbackCalled = true
		return `{}`, nil
	}

	o := NewOrchestrator(client, testFetcher(), 1, true)
	name := pendingName
	name.ProfileURL = srv.URL

	rec := o.enrichOne(context.Background(), name)

	assert.Equal(t, model.StatusComplete, rec.Status)
	assert.False(t, fallbackCalled)
}

func TestEnrichOneFallbackDisabled(t *testing.T) {
	client := &stubClient{
		enabled: true,
		reply: func(string) (string, error) {
			t.Fatal("no capability call expected without profile url or fallback")
			return "", nil
		},
	}
	o := NewOrchestrator(client, testFetcher(), 1, false)

	rec := o.enrichOne(context.Background(), pendingName)

	assert.Equal(t, model.StatusIncomplete, rec.Status)
	assert.Contains(t, rec.Notes, "search fallback disabled")
}

func TestEnrichOneRecoversFromPanic(t *testing.T) {
	client := &stubClient{
		enabled: true,
		reply: func(string) (string, error) {
			panic("boom")
		},
	}
	o := NewOrchestrator(client, testFetcher(), 1, true)

	rec := o.enrichOne(context.Background(), pendingName)

	assert.Equal(t, "张三", rec.NameZH)
	assert.Equal(t, model.StatusIncomplete, rec.Status)
	assert.Contains(t, rec.Notes, "enrich_panic")
}

func TestIsErrorNote(t *testing.T) {
	assert.False(t, IsErrorNote(""))
	assert.False(t, IsErrorNote("search fallback disabled; required fields incomplete"))
	assert.False(t, IsErrorNote("兼职教授"))
	assert.True(t, IsErrorNote("deepseek_error: unexpected status 500"))
	assert.True(t, IsErrorNote("兼职教授; enrich_panic: boom"))
}

func TestNormalizeYear(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2019", "2019"},
		{"2019年", "2019"},
		{"于2003年入职", "2003"},
		{"1998-09", "1998"},
		{"unknown", ""},
		{"", ""},
		{"1875", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeYear(tt.raw), tt.raw)
	}
}
