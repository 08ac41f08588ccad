package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/netguard"
	"github.com/nulzo/chat-router/internal/store/model"
)

const probeTimeout = 15 * time.Second

var displayNames = map[string]string{
	"openai":    "OpenAI",
	"anthropic": "Anthropic",
	"mistral":   "Mistral",
	"inception": "Inception Labs",
}

// ValidationError explains why a key was refused. Reason is safe to show to the user.
type ValidationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type cloudDetector interface {
	IsCloud() bool
}

// Validator checks a key's format and then probes the provider with it.
type Validator struct {
	registry   *llm.Registry
	classifier netguard.Classifier
	cloud      cloudDetector
}

func NewValidator(registry *llm.Registry, classifier netguard.Classifier, cloud cloudDetector) *Validator {
	if classifier == nil {
		classifier = netguard.HostMatch{}
	}
	if cloud == nil {
		cloud = netguard.NewCloudDetector(nil, netguard.ModeAuto)
	}
	return &Validator{registry: registry, classifier: classifier, cloud: cloud}
}

// Validate returns nil when apiKey is usable for provider. For custom
// providers integ supplies the base URL; without one the key is accepted
// unprobed.
func (v *Validator) Validate(ctx context.Context, provider, apiKey string, integ *model.Integration) error {
	if strings.TrimSpace(apiKey) == "" {
		return &ValidationError{Provider: provider, Reason: "API key cannot be empty"}
	}

	switch {
	case provider == "openai" && !strings.HasPrefix(apiKey, "sk-"):
		return &ValidationError{Provider: provider, Reason: "Invalid OpenAI API key format (must start with sk-)"}
	case provider == "anthropic" && !strings.HasPrefix(apiKey, "sk-ant-"):
		return &ValidationError{Provider: provider, Reason: "Invalid Anthropic API key format (must start with sk-ant-)"}
	}

	if _, hosted := displayNames[provider]; hosted {
		return v.probe(ctx, provider, provider, llm.ProbeRequest{APIKey: apiKey})
	}

	if strings.HasPrefix(provider, "custom_") {
		if integ == nil || integ.BaseURL == "" {
			return nil
		}
		if integ.APIShape != "" && integ.APIShape != model.APIShapeOpenAI {
			return &ValidationError{Provider: provider, Reason: "Unsupported API type: " + integ.APIShape}
		}
		if v.cloud.IsCloud() && v.classifier.IsLoopback(integ.BaseURL) {
			return &ValidationError{Provider: provider, Reason: "Local endpoints cannot be validated from a cloud deployment"}
		}
		return v.probe(ctx, "custom", provider, llm.ProbeRequest{APIKey: apiKey, BaseURL: integ.BaseURL})
	}

	return &ValidationError{Provider: provider, Reason: "Unknown provider: " + provider}
}

func (v *Validator) probe(ctx context.Context, adapterID, provider string, req llm.ProbeRequest) error {
	adapter, ok := v.registry.Get(adapterID)
	if !ok {
		return &ValidationError{Provider: provider, Reason: "provider " + adapterID + " is not enabled on this server"}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := adapter.Probe(ctx, req)
	if err == nil {
		return nil
	}

	name := displayNames[provider]
	if name == "" {
		name = "custom integration"
	}

	var ue *llm.UpstreamError
	if errors.As(err, &ue) {
		switch ue.StatusCode {
		case http.StatusUnauthorized:
			return &ValidationError{Provider: provider, Reason: fmt.Sprintf("Invalid API key. Please check your %s API key.", name), Err: err}
		case http.StatusForbidden:
			return &ValidationError{Provider: provider, Reason: fmt.Sprintf("API key does not have required permissions. Please check your %s API key.", name), Err: err}
		}
		return &ValidationError{Provider: provider, Reason: fmt.Sprintf("%s API error: %s", name, ue.Message), Err: err}
	}
	return &ValidationError{Provider: provider, Reason: fmt.Sprintf("Failed to validate %s API key: %v", name, err), Err: err}
}
