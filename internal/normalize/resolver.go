package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/faculty-cli/internal/model"
	"github.com/sells-group/faculty-cli/pkg/deepseek"
)

// Resolver normalizes the three institution fields of enriched records.
type Resolver struct {
	client    deepseek.Client
	table     *AliasTable
	threshold float64
}

// NewResolver creates a Resolver with the given confidence threshold for
// accepting capability-proposed codes.
func NewResolver(client deepseek.Client, table *AliasTable, threshold float64) *Resolver {
	if table == nil {
		table = DefaultAliasTable()
	}
	if threshold <= 0 {
		threshold = 0.8
	}
	return &Resolver{client: client, table: table, threshold: threshold}
}

// Normalize resolves the institution fields of every record. Unresolved
// values keep their original text and produce one ReviewItem each.
func (r *Resolver) Normalize(ctx context.Context, records []model.EnrichedRecord) ([]model.EnrichedRecord, []model.ReviewItem) {
	var reviews []model.ReviewItem
	out := make([]model.EnrichedRecord, 0, len(records))

	for _, rec := range records {
		key := rec.Key().String()

		rec.BSSchool = r.resolveField(ctx, rec.BSSchool, key, "bs_school", &reviews)
		rec.MSSchool = r.resolveField(ctx, rec.MSSchool, key, "ms_school", &reviews)
		rec.PhDSchool = r.resolveField(ctx, rec.PhDSchool, key, "phd_school", &reviews)
		rec.Status = rec.CompletionStatus()

		out = append(out, rec)
	}

	return out, reviews
}

func (r *Resolver) resolveField(ctx context.Context, value, rowKey, field string, reviews *[]model.ReviewItem) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if code, ok := r.table.Resolve(value); ok {
		return code
	}

	proposed, confidence, reason := r.askCapability(ctx, value)
	if proposed != "" && confidence >= r.threshold {
		return proposed
	}

	*reviews = append(*reviews, model.ReviewItem{
		RowKey:     rowKey,
		Field:      field,
		Original:   value,
		Proposed:   proposed,
		Confidence: confidence,
		Reason:     reason,
		CreatedAt:  time.Now().Format("2006-01-02"),
	})
	zap.L().Debug("normalize: field queued for review",
		zap.String("field", field),
		zap.String("value", value),
		zap.Float64("confidence", confidence),
	)
	return value
}

// askCapability requests a standardization proposal: a candidate code, a
// 0-1 confidence, and a reason. Failures come back as zero confidence so
// the value lands in the review queue rather than being lost.
func (r *Resolver) askCapability(ctx context.Context, value string) (code string, confidence float64, reason string) {
	if r.client == nil || !r.client.Enabled() {
		return "", 0, "client_disabled"
	}

	var b strings.Builder
	b.WriteString("你负责把学校/科研机构名称标准化成简写（如 PKU, CAS, THU）。")
	b.WriteString("返回JSON对象：{\"abbr\":\"\",\"confidence\":0~1,\"reason\":\"\"}。")
	b.WriteString("若不确定，abbr返回空字符串。")
	fmt.Fprintf(&b, "\n待标准化名称: %s", value)

	text, err := r.client.ChatJSON(ctx, b.String(), 0.0)
	if err != nil {
		return "", 0, "deepseek_error: " + err.Error()
	}

	payload := deepseek.ParseJSONObject(text)

	if v, ok := payload["abbr"].(string); ok {
		code = strings.ToUpper(strings.TrimSpace(v))
	}
	switch v := payload["confidence"].(type) {
	case float64:
		confidence = v
	case string:
		confidence, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	if v, ok := payload["reason"].(string); ok {
		reason = strings.TrimSpace(v)
	}
	return code, confidence, reason
}
