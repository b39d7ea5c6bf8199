// Package enrich fans pending professor records out across bounded
// concurrent workers, each filling academic-history fields through the
// capability with a layered fallback: profile-grounded extraction first,
// open web search second. Per-item failure degrades to an annotated
// incomplete record and never aborts siblings.
package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/faculty-cli/internal/model"
	"github.com/sells-group/faculty-cli/internal/store"
	"github.com/sells-group/faculty-cli/pkg/deepseek"
)

// Orchestrator enriches professor records through the capability.
type Orchestrator struct {
	client         deepseek.Client
	fetcher        *ProfileFetcher
	workers        int
	searchFallback bool
}

// NewOrchestrator creates an Orchestrator with the given worker count.
func NewOrchestrator(client deepseek.Client, fetcher *ProfileFetcher, workers int, searchFallback bool) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		client:         client,
		fetcher:        fetcher,
		workers:        workers,
		searchFallback: searchFallback,
	}
}

// Run produces exactly one EnrichedRecord per pending input. Results join
// in completion order; downstream merging is keyed, so order carries no
// meaning. A panic inside a worker is converted to a degraded record.
func (o *Orchestrator) Run(ctx context.Context, pending []model.ProfessorName) []model.EnrichedRecord {
	var (
		mu      sync.Mutex
		results []model.EnrichedRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, name := range pending {
		g.Go(func() error {
			rec := o.enrichOne(gCtx, name)
			mu.Lock()
			results = append(results, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) enrichOne(ctx context.Context, name model.ProfessorName) (rec model.EnrichedRecord) {
	rec = defaultRecord(name)
	defer func() {
		if r := recover(); r != nil {
			rec = defaultRecord(name)
			rec.Notes = fmt.Sprintf("enrich_panic: %v", r)
			zap.L().Error("enrich: worker panic",
				zap.String("key", name.Key().String()),
				zap.Any("panic", r),
			)
		}
		rec.JoinYear = NormalizeYear(rec.JoinYear)
		rec.Status = rec.CompletionStatus()
	}()

	if !o.client.Enabled() {
		return rec
	}

	if rec.ProfileURL != "" {
		if text := o.fetcher.Text(ctx, rec.ProfileURL); text != "" {
			o.applyProfileExtraction(ctx, &rec, text)
		}
	}

	if rec.CompletionStatus() == model.StatusComplete {
		return rec
	}

	if !o.searchFallback {
		rec.Notes = appendNote(rec.Notes, "search fallback disabled; required fields incomplete")
		return rec
	}

	o.applySearchFallback(ctx, &rec)
	return rec
}

func defaultRecord(name model.ProfessorName) model.EnrichedRecord {
	return model.EnrichedRecord{
		Department:  name.Department,
		Institution: name.Institution,
		NameZH:      name.NameZH,
		NameEN:      name.NameEN,
		ProfileURL:  name.ProfileURL,
		Status:      model.StatusIncomplete,
		CrawlDate:   time.Now().Format("2006-01-02"),
	}
}

// applyProfileExtraction overwrites fields wholesale from a
// profile-grounded response: the supplied text is the source of truth.
func (o *Orchestrator) applyProfileExtraction(ctx context.Context, rec *model.EnrichedRecord, text string) {
	resp, err := o.client.ChatJSON(ctx, profilePrompt(rec, text), 0.05)
	if err != nil {
		rec.Notes = appendNote(rec.Notes, "deepseek_error: "+err.Error())
		return
	}

	payload := deepseek.ParseJSONObject(resp)
	rec.NameEN = stringField(payload, "name_en")
	rec.Title = stringField(payload, "title")
	rec.BSSchool = stringField(payload, "bs_school")
	rec.MSSchool = stringField(payload, "ms_school")
	rec.PhDSchool = stringField(payload, "phd_school")
	rec.JoinYear = stringField(payload, "join_year")
	if notes := stringField(payload, "notes"); notes != "" {
		rec.Notes = appendNote(rec.Notes, notes)
	}
	if u := stringField(payload, "profile_url"); u != "" {
		rec.ProfileURL = u
	}
}

// applySearchFallback fills remaining gaps from an open-ended search
// response without overwriting values already present.
func (o *Orchestrator) applySearchFallback(ctx context.Context, rec *model.EnrichedRecord) {
	resp, err := o.client.ChatJSON(ctx, searchPrompt(rec), 0.05)
	if err != nil {
		rec.Notes = appendNote(rec.Notes, "deepseek_error: "+err.Error())
		return
	}

	payload := deepseek.ParseJSONObject(resp)
	rec.NameEN = store.FillMissing(rec.NameEN, stringField(payload, "name_en"))
	rec.Title = store.FillMissing(rec.Title, stringField(payload, "title"))
	rec.ProfileURL = store.FillMissing(rec.ProfileURL, stringField(payload, "profile_url"))
	rec.BSSchool = store.FillMissing(rec.BSSchool, stringField(payload, "bs_school"))
	rec.MSSchool = store.FillMissing(rec.MSSchool, stringField(payload, "ms_school"))
	rec.PhDSchool = store.FillMissing(rec.PhDSchool, stringField(payload, "phd_school"))
	rec.JoinYear = store.FillMissing(rec.JoinYear, stringField(payload, "join_year"))
	if notes := stringField(payload, "notes"); notes != "" {
		rec.Notes = appendNote(rec.Notes, notes)
	}
}

const maxPromptTextRunes = 6000

func profilePrompt(rec *model.EnrichedRecord, text string) string {
	if r := []rune(text); len(r) > maxPromptTextRunes {
		text = string(r[:maxPromptTextRunes])
	}

	var b strings.Builder
	b.WriteString("仅依据下面提供的网页文本抽取教师信息，不要检索，不要编造。")
	b.WriteString("只输出纯文本JSON对象，字段完整：")
	b.WriteString("name_en,title,profile_url,bs_school,ms_school,phd_school,join_year,notes。")
	b.WriteString("文本中没有的字段请留空字符串。")
	b.WriteString("join_year 只给出年份数字，不要其他文字。")
	b.WriteString("bs_school/ms_school/phd_school 只给出学校名称，不要其他文字（如本科、学士等）。")
	fmt.Fprintf(&b, "\n姓名: %s", identity(rec))
	fmt.Fprintf(&b, "\n学部: %s", rec.Department)
	fmt.Fprintf(&b, "\n学院: %s", rec.Institution)
	fmt.Fprintf(&b, "\n网页文本:\n%s", text)
	return b.String()
}

func searchPrompt(rec *model.EnrichedRecord) string {
	var b strings.Builder
	b.WriteString("基于教师主页检索教师信息。")
	b.WriteString("只输出纯文本JSON对象，字段完整：")
	b.WriteString("name_en,title,profile_url,bs_school,ms_school,phd_school,join_year,notes。")
	b.WriteString("如果不确定请留空字符串，不要编造。")
	b.WriteString("已提供的已知值如可信请原样保留，只补全缺失字段。")
	b.WriteString("profile_url 需要通过检索给出最可信的教师个人主页链接。")
	b.WriteString("join_year 只给出年份数字，不要其他文字。")
	b.WriteString("bs_school/ms_school/phd_school 只给出学校名称，不要其他文字（如本科、学士等）。")
	fmt.Fprintf(&b, "\n姓名: %s", identity(rec))
	fmt.Fprintf(&b, "\n学部: %s", rec.Department)
	fmt.Fprintf(&b, "\n学院: %s", rec.Institution)
	fmt.Fprintf(&b, "\n已知值: {\"name_en\":%q,\"title\":%q,\"profile_url\":%q,\"bs_school\":%q,\"ms_school\":%q,\"phd_school\":%q,\"join_year\":%q}",
		rec.NameEN, rec.Title, rec.ProfileURL, rec.BSSchool, rec.MSSchool, rec.PhDSchool, rec.JoinYear)
	return b.String()
}

func identity(rec *model.EnrichedRecord) string {
	if rec.NameZH != "" {
		return rec.NameZH
	}
	return rec.NameEN
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSuffix(strings.TrimSpace(fmt.Sprintf("%v", t)), ".0")
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}

// IsErrorNote reports whether a record's notes include a failure recorded
// by the workers. Informational notes, such as the fallback-disabled
// remark or model commentary, do not count.
func IsErrorNote(notes string) bool {
	return strings.Contains(notes, "deepseek_error:") ||
		strings.Contains(notes, "enrich_panic:")
}

var yearRe = regexp.MustCompile(`(19|20)\d{2}`)

// NormalizeYear reduces whatever the capability returned for the join year
// to a bare 4-digit year, or "" when none is present.
func NormalizeYear(raw string) string {
	return yearRe.FindString(raw)
}
