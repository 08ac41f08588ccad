package anthropic

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
	llm.Register("anthropic", NewAdapter)
}

const defaultVersion = "2023-06-01"

type Adapter struct {
	config config.ProviderConfig
	client *httpclient.Client
}

func NewAdapter(cfg config.ProviderConfig) (llm.Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &Adapter{
		config: cfg,
		client: httpclient.New(cfg.Timeout),
	}, nil
}

func (a *Adapter) Name() string { return a.config.ID }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

func (a *Adapter) Complete(ctx context.Context, req llm.Completion) (string, error) {
	if req.APIKey == "" {
		return "", llm.ErrMissingCredential
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := request{
		Model:       req.Model,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	}

	url := fmt.Sprintf("%s/messages", a.baseURL(req.BaseURL))
	resp, err := a.client.SendRequest(ctx, http.MethodPost, url, a.headers(req.APIKey), body)
	if err != nil {
		return "", llm.WrapUpstream(a.Name(), err)
	}

	// the first text block is the reply; tool_use and thinking blocks are skipped
	text := gjson.GetBytes(resp, `content.#(type=="text").text`)
	if !text.Exists() {
		return "", llm.MalformedResponse(a.Name(), "no text content block")
	}
	return text.String(), nil
}

func (a *Adapter) Probe(ctx context.Context, req llm.ProbeRequest) error {
	if req.APIKey == "" {
		return llm.ErrMissingCredential
	}
	url := fmt.Sprintf("%s/models?limit=1", a.baseURL(req.BaseURL))
	if _, err := a.client.SendRequest(ctx, http.MethodGet, url, a.headers(req.APIKey), nil); err != nil {
		return llm.WrapUpstream(a.Name(), err)
	}
	return nil
}

func (a *Adapter) baseURL(override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	return strings.TrimRight(a.config.BaseURL, "/")
}

func (a *Adapter) headers(apiKey string) map[string]string {
	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": defaultVersion,
	}
	if v, ok := a.config.Config["version"]; ok && v != "" {
		headers["anthropic-version"] = v
	}
	return headers
}
