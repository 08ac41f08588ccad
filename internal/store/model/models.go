package model

import (
	"time"
)

// Credential is a user's API key for one provider, stored encrypted.
type Credential struct {
	UserID       string    `db:"user_id" json:"user_id"`
	Provider     string    `db:"provider" json:"provider"`
	EncryptedKey string    `db:"encrypted_key" json:"-"`      // Never returned
	KeyPrefix    string    `db:"key_prefix" json:"key_prefix"` // Display only
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Endpoint is one OpenAI-compatible base URL plus an optional key.
type Endpoint struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key,omitempty"`
}

const APIShapeOpenAI = "openai"

// Integration is a user-defined OpenAI-compatible provider reachable
// through the "custom_" provider id namespace.
type Integration struct {
	ID         string `db:"id" json:"id"`
	UserID     string `db:"user_id" json:"user_id"`
	Name       string `db:"name" json:"name"`
	ProviderID string `db:"provider_id" json:"provider_id"`
	BaseURL    string `db:"base_url" json:"base_url,omitempty"`
	APIShape   string `db:"api_shape" json:"api_shape"`
	IsActive   bool   `db:"is_active" json:"is_active"`

	// FallbacksEnc is the encrypted JSON form of Fallbacks.
	FallbacksEnc string     `db:"fallbacks_enc" json:"-"`
	Fallbacks    []Endpoint `db:"-" json:"fallbacks,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EndpointCount is the number of configured endpoints, primary included.
func (i *Integration) EndpointCount() int {
	n := len(i.Fallbacks)
	if i.BaseURL != "" {
		n++
	}
	return n
}

// RouteLog records the outcome of one routed chat request.
type RouteLog struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	ProviderID    string    `db:"provider_id" json:"provider_id"`
	Model         string    `db:"model" json:"model"`
	ResolvedModel string    `db:"resolved_model" json:"resolved_model"`
	Outcome       string    `db:"outcome" json:"outcome"` // "ok" or an error kind
	Attempts      int       `db:"attempts" json:"attempts"`
	LatencyMS     int64     `db:"latency_ms" json:"latency_ms"`
	ErrorMessage  string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// RouteStats aggregates route logs per provider and outcome.
type RouteStats struct {
	ProviderID     string  `db:"provider_id" json:"provider_id"`
	Outcome        string  `db:"outcome" json:"outcome"`
	TotalRequests  int     `db:"total_requests" json:"total_requests"`
	AverageLatency float64 `db:"avg_latency" json:"avg_latency"`
}
