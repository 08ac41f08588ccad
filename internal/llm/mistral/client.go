// Package mistral is a small native client for the Mistral chat API.
package mistral

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/tidwall/gjson"
)

func init() {
	llm.Register("mistral", NewClient)
}

type Client struct {
	config config.ProviderConfig
	http   *httpclient.Client
}

func NewClient(cfg config.ProviderConfig) (llm.Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &Client{config: cfg, http: httpclient.New(cfg.Timeout)}, nil
}

func (c *Client) Name() string { return c.config.ID }

// Models returns the configured allow-list. Empty means any model is accepted.
func (c *Client) Models() []string { return c.config.Models }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	SafePrompt  bool          `json:"safe_prompt"`
}

func (c *Client) Complete(ctx context.Context, req llm.Completion) (string, error) {
	if req.APIKey == "" {
		return "", llm.ErrMissingCredential
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	resp, err := c.http.SendRequest(ctx, http.MethodPost, c.endpoint(req.BaseURL, "chat/completions"), c.headers(req.APIKey), body)
	if err != nil {
		return "", llm.WrapUpstream(c.Name(), err)
	}

	content := gjson.GetBytes(resp, "choices.0.message.content")
	if !content.Exists() {
		return "", llm.MalformedResponse(c.Name(), "choices[0].message.content missing")
	}
	// newer models may answer with a list of typed chunks
	if content.IsArray() {
		var sb strings.Builder
		content.ForEach(func(_, chunk gjson.Result) bool {
			if chunk.Get("type").String() == "text" {
				sb.WriteString(chunk.Get("text").String())
			}
			return true
		})
		return sb.String(), nil
	}
	return content.String(), nil
}

func (c *Client) Probe(ctx context.Context, req llm.ProbeRequest) error {
	if req.APIKey == "" {
		return llm.ErrMissingCredential
	}
	if _, err := c.http.SendRequest(ctx, http.MethodGet, c.endpoint(req.BaseURL, "models"), c.headers(req.APIKey), nil); err != nil {
		return llm.WrapUpstream(c.Name(), err)
	}
	return nil
}

func (c *Client) endpoint(override, path string) string {
	base := c.config.BaseURL
	if override != "" {
		base = override
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), path)
}

func (c *Client) headers(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}
