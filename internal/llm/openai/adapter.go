package openai

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
	llm.Register("openai", NewAdapter)
}

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "default"
	defaultMaxTokens = 1000
)

// Adapter speaks the OpenAI chat-completions dialect. It also serves
// Inception and custom OpenAI-compatible endpoints, which differ only in
// base URL and timeout. Temperature is sent as configured; zero is a
// valid setting and the 0.7 default comes from config loading.
type Adapter struct {
	config config.ProviderConfig
	client *httpclient.Client
}

func NewAdapter(cfg config.ProviderConfig) (llm.Provider, error) {
	if cfg.BaseURL == "" && cfg.ID != string(llm.Custom) {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Adapter{
		config: cfg,
		client: httpclient.New(cfg.Timeout),
	}, nil
}

func (a *Adapter) Name() string {
	return a.config.ID
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

func (a *Adapter) Complete(ctx context.Context, req llm.Completion) (string, error) {
	if req.APIKey == "" {
		return "", llm.ErrMissingCredential
	}

	base := a.baseURL(req.BaseURL)
	if base == "" {
		return "", &llm.UpstreamError{Provider: a.Name(), Message: "no base url configured"}
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := chatRequest{
		Model:       model,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	}

	url := fmt.Sprintf("%s/chat/completions", base)
	resp, err := a.client.SendRequest(ctx, http.MethodPost, url, a.headers(req.APIKey), body)
	if err != nil {
		return "", llm.WrapUpstream(a.Name(), err)
	}

	content := gjson.GetBytes(resp, "choices.0.message.content")
	if !content.Exists() || content.Type != gjson.String {
		return "", llm.MalformedResponse(a.Name(), "choices[0].message.content missing")
	}
	return content.Str, nil
}

// Probe lists models, which every OpenAI-compatible server exposes and which costs no tokens.
func (a *Adapter) Probe(ctx context.Context, req llm.ProbeRequest) error {
	if req.APIKey == "" {
		return llm.ErrMissingCredential
	}
	base := a.baseURL(req.BaseURL)
	if base == "" {
		return &llm.UpstreamError{Provider: a.Name(), Message: "no base url configured"}
	}

	url := fmt.Sprintf("%s/models", base)
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
		"Authorization": "Bearer " + apiKey,
	}
	if org, ok := a.config.Config["organization"]; ok {
		headers["OpenAI-Organization"] = org
	}
	return headers
}
