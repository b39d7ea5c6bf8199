package deepseek

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/faculty-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func newTestClient(url string) Client {
	return NewClient("test-key",
		WithBaseURL(url),
		WithModel("deepseek-chat"),
		WithRetryConfig(fastRetry()),
	)
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id": "cmpl-1",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestChatJSON(t *testing.T) {
	var gotReq ChatCompletionRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, completionBody(`{"abbr":"PKU"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	text, err := client.ChatJSON(context.Background(), "标准化: 北京大学", 0.0)

	require.NoError(t, err)
	assert.Equal(t, `{"abbr":"PKU"}`, text)
	assert.Equal(t, "Bearer test-key", gotAuth)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "标准化: 北京大学", gotReq.Messages[1].Content)
	assert.Equal(t, "deepseek-chat", gotReq.Model)
}

func TestChatJSONRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).ChatJSON(context.Background(), "p", 0.0)

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, calls)
}

func TestChatJSONRetriesClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).ChatJSON(context.Background(), "p", 0.0)

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestChatJSONRetriesMissingChoices(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"id":"cmpl-1","choices":[]}`)
			return
		}
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).ChatJSON(context.Background(), "p", 0.0)

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestChatJSONMissingChoices(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"id":"cmpl-1","choices":[]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ChatJSON(context.Background(), "p", 0.0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing choices")
	assert.Equal(t, 3, calls)
}

func TestChatJSONContentParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}}]}`)
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).ChatJSON(context.Background(), "p", 0.0)

	require.NoError(t, err)
	assert.Equal(t, "part one\npart two", text)
}

func TestDisabledClient(t *testing.T) {
	client := NewClient("")

	assert.False(t, client.Enabled())
	_, err := client.ChatJSON(context.Background(), "p", 0.0)
	assert.Error(t, err)

	assert.True(t, NewClient(" key ").Enabled())
}
