// Package deepseek is a minimal client for the DeepSeek chat-completions
// API. The pipeline treats it as an opaque capability: submit a prompt,
// receive text. Failed attempts are retried with linear backoff.
package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/faculty-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"

	systemPrompt = "You are a precise information extractor. Return JSON only."
)

// Client performs chat completions against the DeepSeek API.
type Client interface {
	// ChatJSON sends a single-turn prompt and returns the assistant text.
	ChatJSON(ctx context.Context, prompt string, temperature float64) (string, error)

	// Enabled reports whether the client holds a credential. A disabled
	// client fails every call immediately.
	Enabled() bool
}

// ChatCompletionRequest is the request body for POST /chat/completions.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the response from POST /chat/completions.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion choice. Content is usually a string but
// some gateways return a list of typed text parts.
type Choice struct {
	Index   int             `json:"index"`
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text flattens the message content: plain string, or the joined text parts.
func (c Choice) Text() string {
	var s string
	if err := json.Unmarshal(c.Message.Content, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var parts []contentPart
	if err := json.Unmarshal(c.Message.Content, &parts); err == nil {
		var texts []string
		for _, p := range parts {
			if p.Type == "text" && p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		return strings.TrimSpace(strings.Join(texts, "\n"))
	}
	return ""
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = rc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a DeepSeek API client. An empty apiKey yields a
// disabled client; callers check Enabled before batching work to it.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Enabled() bool {
	return c.apiKey != ""
}

func (c *httpClient) ChatJSON(ctx context.Context, prompt string, temperature float64) (string, error) {
	if !c.Enabled() {
		return "", eris.New("deepseek: api key is not configured")
	}

	req := ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("deepseek", "chat_completion")
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return c.chatOnce(ctx, req)
	})
}

func (c *httpClient) chatOnce(ctx context.Context, req ChatCompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", eris.Wrap(err, "deepseek: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "deepseek: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "deepseek: send request"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "deepseek: read response"), resp.StatusCode)
	}

	// Every failed attempt is retried before surfacing: non-200 statuses,
	// malformed bodies, and empty choice lists all occur transiently on
	// this API.
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("deepseek: unexpected status %d: %s", resp.StatusCode, string(respBody))
		return "", resilience.NewTransientError(err, resp.StatusCode)
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "deepseek: unmarshal response"), resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return "", resilience.NewTransientError(eris.New("deepseek: response missing choices"), resp.StatusCode)
	}

	return result.Choices[0].Text(), nil
}
