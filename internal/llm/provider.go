package llm

import (
	"context"
	"time"
)

type ProviderName string

const (
	OpenAI    ProviderName = "openai"
	Anthropic ProviderName = "anthropic"
	Mistral   ProviderName = "mistral"
	Inception ProviderName = "inception"
	Custom    ProviderName = "custom"
)

// Completion is a single-turn request: one opaque prompt in, one reply out.
type Completion struct {
	Model  string
	Prompt string
	APIKey string

	// BaseURL and Timeout override the adapter's configured values for
	// this call only. Custom endpoints set both.
	BaseURL string
	Timeout time.Duration
}

// ProbeRequest asks an upstream whether a credential is accepted.
type ProbeRequest struct {
	APIKey  string
	BaseURL string
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req Completion) (string, error)
	Probe(ctx context.Context, req ProbeRequest) error
}
