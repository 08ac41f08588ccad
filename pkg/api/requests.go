package api

// ChatRequest is one chat turn.
type ChatRequest struct {
	// ProviderID is a hosted provider (openai, anthropic, mistral, inception)
	// or a custom integration id prefixed with "custom_".
	ProviderID string `json:"provider_id" binding:"required,max=100,provider_id"`

	// Model is optional for custom integrations.
	Model string `json:"model" binding:"max=200"`

	Prompt string `json:"prompt" binding:"required"`
}

type CredentialRequest struct {
	APIKey string `json:"api_key" binding:"required,max=1024"`
}

// EndpointRequest is one fallback endpoint of an integration.
type EndpointRequest struct {
	URL    string `json:"url" binding:"required,max=2048,http_url"`
	APIKey string `json:"api_key,omitempty" binding:"max=1024"`
}

type IntegrationRequest struct {
	Name      string            `json:"name" binding:"required,max=255"`
	BaseURL   string            `json:"base_url,omitempty" binding:"omitempty,max=2048,http_url"`
	APIType   string            `json:"api_type,omitempty" binding:"omitempty,oneof=openai"`
	Fallbacks []EndpointRequest `json:"fallbacks,omitempty" binding:"omitempty,max=10,dive"`
	IsActive  *bool             `json:"is_active,omitempty"`
}
