package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/faculty-cli/pkg/deepseek"
)

const defaultClassifyBatchSize = 60

// Classifier adjudicates candidate tokens through the capability, batch by
// batch. On any batch failure it fails open: the whole batch is accepted
// rather than lost.
type Classifier struct {
	client    deepseek.Client
	batchSize int
}

// NewClassifier creates a Classifier around the capability client.
func NewClassifier(client deepseek.Client) *Classifier {
	return &Classifier{client: client, batchSize: defaultClassifyBatchSize}
}

// ClassifyResult is the accepted name set plus audit counters separating
// capability-confirmed names from fail-open-accepted ones.
type ClassifyResult struct {
	Accepted  []string
	Confirmed int
	FailOpen  int
}

// Classify filters candidates for one department+institution group down to
// real person names. Tokens failing the deterministic heuristic never
// reach the capability; with the capability disabled the deterministic
// subset is the final answer.
func (c *Classifier) Classify(ctx context.Context, department, institution string, candidates []string) ClassifyResult {
	deterministic := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if LooksLikeName(name) {
			deterministic = append(deterministic, name)
		}
	}

	if c.client == nil || !c.client.Enabled() {
		return ClassifyResult{Accepted: sortedUnique(deterministic)}
	}

	selected := make(map[string]struct{})
	var confirmed, failOpen int

	for start := 0; start < len(deterministic); start += c.batchSize {
		end := min(start+c.batchSize, len(deterministic))
		batch := deterministic[start:end]

		text, err := c.client.ChatJSON(ctx, classifyPrompt(department, institution, batch), 0.0)
		if err != nil {
			zap.L().Warn("classify: batch failed, accepting whole batch",
				zap.String("institution", institution),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			for _, name := range batch {
				selected[name] = struct{}{}
			}
			failOpen++
			continue
		}

		for _, name := range deepseek.ParseJSONList(text) {
			if LooksLikeName(name) {
				selected[NormalizeToken(name)] = struct{}{}
			}
		}
		confirmed++
	}

	accepted := make([]string, 0, len(selected))
	for name := range selected {
		accepted = append(accepted, name)
	}
	sort.Strings(accepted)

	return ClassifyResult{Accepted: accepted, Confirmed: confirmed, FailOpen: failOpen}
}

func classifyPrompt(department, institution string, batch []string) string {
	var b strings.Builder
	b.WriteString("请从候选词中筛选‘真实教师姓名’，返回JSON数组。")
	b.WriteString("只保留人名，剔除栏目词、职位词、页面导航词、学科词、机构词。")
	b.WriteString("中文姓名一般2-4个汉字；英文姓名2-3词，且每个词应为首字母大写或全大写。")
	fmt.Fprintf(&b, "\n院系: %s", department)
	fmt.Fprintf(&b, "\n单位: %s", institution)
	b.WriteString("\n候选词列表: [")
	for i, name := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", name)
	}
	b.WriteString("]")
	b.WriteString("\n仅输出JSON数组，例如: [\"张三\", \"Li Ming\"]")
	return b.String()
}

func sortedUnique(names []string) []string {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
