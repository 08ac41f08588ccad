package gateway

import (
	"strings"

	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/store/model"
)

// CustomPrefix marks provider ids that resolve to a user Integration.
const CustomPrefix = "custom_"

const customLocalPrefix = CustomPrefix + "local_"

var hostedKinds = map[string]llm.ProviderName{
	string(llm.OpenAI):    llm.OpenAI,
	string(llm.Anthropic): llm.Anthropic,
	string(llm.Mistral):   llm.Mistral,
	string(llm.Inception): llm.Inception,
}

// Target is the parsed form of a provider id. It is either Hosted or Custom.
type Target interface {
	target()
}

// Hosted selects one of the fixed vendor adapters.
type Hosted struct {
	Kind llm.ProviderName
}

// Custom selects the fallback cascade over a user's Integration.
type Custom struct {
	ProviderID  string
	Integration *model.Integration
}

func (Hosted) target() {}
func (Custom) target() {}

// IsCustom reports whether id lives in the custom integration namespace.
func IsCustom(id string) bool {
	return strings.HasPrefix(id, CustomPrefix)
}

// IsHosted reports whether id is one of the reserved vendor ids.
func IsHosted(id string) bool {
	_, ok := hostedKinds[id]
	return ok
}

// ParseTarget maps a provider id to its Target. The integration is only
// consulted for custom ids and may be nil, which Route rejects.
func ParseTarget(providerID string, integration *model.Integration) (Target, error) {
	if kind, ok := hostedKinds[providerID]; ok {
		return Hosted{Kind: kind}, nil
	}
	if IsCustom(providerID) {
		return Custom{ProviderID: providerID, Integration: integration}, nil
	}
	return nil, &RouteError{
		Kind:     KindUnknownProvider,
		Provider: providerID,
		Message:  "unknown provider " + providerID,
	}
}

// DeriveModel fills in the model for "custom_local_<name>" ids when the caller
// left it empty or "default": underscores in <name> become dots, so
// custom_local_llama3_2 asks for llama3.2.
func DeriveModel(providerID, model string) string {
	if model != "" && model != "default" {
		return model
	}
	if name, ok := strings.CutPrefix(providerID, customLocalPrefix); ok && name != "" {
		return strings.ReplaceAll(name, "_", ".")
	}
	return model
}
