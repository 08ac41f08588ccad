package api

import "time"

type ChatResponse struct {
	Reply     string `json:"reply"`
	UsedModel string `json:"used_model"`
	Attempts  int    `json:"attempts"`
}

type CredentialResponse struct {
	Provider  string    `json:"provider"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EndpointResponse never echoes the endpoint key, only whether one is set.
type EndpointResponse struct {
	URL    string `json:"url"`
	HasKey bool   `json:"has_key"`
}

type IntegrationResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	ProviderID string             `json:"provider_id"`
	BaseURL    string             `json:"base_url,omitempty"`
	APIType    string             `json:"api_type"`
	IsActive   bool               `json:"is_active"`
	Fallbacks  []EndpointResponse `json:"fallbacks"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ListResponse is the envelope for collection endpoints.
type ListResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

func NewList[T any](data []T) ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{Object: "list", Data: data}
}
