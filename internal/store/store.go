package store

import (
	"context"
	"errors"

	"github.com/nulzo/chat-router/internal/store/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Repository is the main contract for the data layer.
type Repository interface {
	Credentials() CredentialRepository
	Integrations() IntegrationRepository
	Routes() RouteLogRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

type CredentialRepository interface {
	// Get returns ErrNotFound when the user has no key for provider.
	Get(ctx context.Context, userID, provider string) (*model.Credential, error)
	// Upsert creates or replaces the key for (user, provider).
	Upsert(ctx context.Context, cred *model.Credential) error
	Delete(ctx context.Context, userID, provider string) error
	ListByUser(ctx context.Context, userID string) ([]model.Credential, error)
}

type IntegrationRepository interface {
	GetByID(ctx context.Context, userID, id string) (*model.Integration, error)
	// GetByProviderID resolves a "custom_" provider id for one user.
	GetByProviderID(ctx context.Context, userID, providerID string) (*model.Integration, error)
	// Create returns ErrConflict when provider_id is already taken for the user.
	Create(ctx context.Context, integ *model.Integration) error
	Update(ctx context.Context, integ *model.Integration) error
	Delete(ctx context.Context, userID, id string) error
	ListByUser(ctx context.Context, userID string) ([]model.Integration, error)
}

type RouteLogRepository interface {
	// Log stores a batch of route logs.
	Log(ctx context.Context, logs ...*model.RouteLog) error
	// GetRecent returns the last N logs for a user, newest first.
	GetRecent(ctx context.Context, userID string, limit int) ([]model.RouteLog, error)
	// GetStats aggregates a user's logs by provider and outcome.
	GetStats(ctx context.Context, userID string) ([]model.RouteStats, error)
}
