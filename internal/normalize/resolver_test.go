package normalize

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/faculty-cli/internal/model"
)

type stubClient struct {
	enabled bool
	reply   func(prompt string) (string, error)
	calls   int
}

func (s *stubClient) ChatJSON(ctx context.Context, prompt string, temperature float64) (string, error) {
	s.calls++
	return s.reply(prompt)
}

func (s *stubClient) Enabled() bool { return s.enabled }

func TestNormalizeTableHit(t *testing.T) {
	client := &stubClient{enabled: true, reply: func(string) (string, error) {
		return "", eris.New("should not be called")
	}}
	r := NewResolver(client, DefaultAliasTable(), 0.8)

	records := []model.EnrichedRecord{{
		NameZH:    "张三",
		BSSchool:  "北京大学",
		PhDSchool: "毕业于清华大学",
		JoinYear:  "2019",
	}}
	out, reviews := r.Normalize(context.Background(), records)

	require.Len(t, out, 1)
	assert.Equal(t, "PKU", out[0].BSSchool)
	assert.Equal(t, "THU", out[0].PhDSchool)
	assert.Equal(t, model.StatusComplete, out[0].Status)
	assert.Empty(t, reviews)
	assert.Zero(t, client.calls)
}

func TestNormalizeAcceptsConfidentProposal(t *testing.T) {
	client := &stubClient{enabled: true, reply: func(string) (string, error) {
		return `{"abbr":"mit","confidence":0.95,"reason":"well known"}`, nil
	}}
	r := NewResolver(client, DefaultAliasTable(), 0.8)

	out, reviews := r.Normalize(context.Background(), []model.EnrichedRecord{{
		NameZH: "张三", PhDSchool: "麻省理工学院",
	}})

	// proposed code upper-cased
	assert.Equal(t, "MIT", out[0].PhDSchool)
	assert.Empty(t, reviews)
}

func TestNormalizeLowConfidenceGoesToReview(t *testing.T) {
	client := &stubClient{enabled: true, reply: func(string) (string, error) {
		return `{"abbr":"XYZ","confidence":0.4,"reason":"guess"}`, nil
	}}
	r := NewResolver(client, DefaultAliasTable(), 0.8)

	out, reviews := r.Normalize(context.Background(), []model.EnrichedRecord{{
		NameZH: "张三", PhDSchool: "某某研究院",
	}})

	// original value kept, never the low-confidence guess
	assert.Equal(t, "某某研究院", out[0].PhDSchool)
	require.Len(t, reviews, 1)
	assert.Equal(t, "phd_school", reviews[0].Field)
	assert.Equal(t, "某某研究院", reviews[0].Original)
	assert.Equal(t, "XYZ", reviews[0].Proposed)
	assert.InDelta(t, 0.4, reviews[0].Confidence, 1e-9)
}

func TestNormalizeEmptyProposalGoesToReview(t *testing.T) {
	client := &stubClient{enabled: true, reply: func(string) (string, error) {
		return `{"abbr":"","confidence":0.99,"reason":"uncertain"}`, nil
	}}
	r := NewResolver(client, DefaultAliasTable(), 0.8)

	out, reviews := r.Normalize(context.Background(), []model.EnrichedRecord{{
		NameZH: "张三", BSSchool: "不知名学院",
	}})

	assert.Equal(t, "不知名学院", out[0].BSSchool)
	require.Len(t, reviews, 1)
}

func TestNormalizeDisabledClientQueuesUnknowns(t *testing.T) {
	r := NewResolver(&stubClient{enabled: false}, DefaultAliasTable(), 0.8)

	out, reviews := r.Normalize(context.Background(), []model.EnrichedRecord{{
		NameZH: "张三", BSSchool: "北京大学", MSSchool: "未知大学",
	}})

	assert.Equal(t, "PKU", out[0].BSSchool)
	assert.Equal(t, "未知大学", out[0].MSSchool)
	require.Len(t, reviews, 1)
	assert.Equal(t, "client_disabled", reviews[0].Reason)
}

func TestNormalizeCapabilityErrorQueues(t *testing.T) {
	client := &stubClient{enabled: true, reply: func(string) (string, error) {
		return "", eris.New("timeout")
	}}
	r := NewResolver(client, DefaultAliasTable(), 0.8)

	_, reviews := r.Normalize(context.Background(), []model.EnrichedRecord{{
		NameZH: "张三", PhDSchool: "神秘大学",
	}})

	require.Len(t, reviews, 1)
	assert.Contains(t, reviews[0].Reason, "deepseek_error")
	assert.Zero(t, reviews[0].Confidence)
}

func TestNormalizeStringConfidence(t *testing.T) {
	client := &stubClient{enabled: true, reply: func(string) (string, error) {
		return `{"abbr":"ETH","confidence":"0.9","reason":"known"}`, nil
	}}
	r := NewResolver(client, DefaultAliasTable(), 0.8)

	out, reviews := r.Normalize(context.Background(), []model.EnrichedRecord{{
		NameZH: "张三", PhDSchool: "苏黎世联邦理工",
	}})

	assert.Equal(t, "ETH", out[0].PhDSchool)
	assert.Empty(t, reviews)
}

func TestNormalizeEmptyFieldsUntouched(t *testing.T) {
	client := &stubClient{enabled: true, reply: func(string) (string, error) {
		return "", eris.New("should not be called")
	}}
	r := NewResolver(client, DefaultAliasTable(), 0.8)

	out, reviews := r.Normalize(context.Background(), []model.EnrichedRecord{{NameZH: "张三"}})

	assert.Empty(t, out[0].BSSchool)
	assert.Empty(t, reviews)
	assert.Zero(t, client.calls)
}
