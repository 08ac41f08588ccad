package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.uber.org/zap"
)

// Service is the write path for user credentials. Every mutation drops the
// local cache entry and notifies peers before returning.
type Service struct {
	repo      store.Repository
	enc       *Encryption
	cache     *Cache
	validator *Validator
	bus       Invalidator
	logger    *zap.Logger
}

// NewService wires the credential service. A nil validator stores keys
// without probing; a nil bus disables peer notification.
func NewService(repo store.Repository, enc *Encryption, cache *Cache, validator *Validator, bus Invalidator, logger *zap.Logger) *Service {
	if bus == nil {
		bus = NopInvalidator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, enc: enc, cache: cache, validator: validator, bus: bus, logger: logger}
}

// Save validates, encrypts and stores apiKey for (userID, provider).
func (s *Service) Save(ctx context.Context, userID, provider, apiKey string) (*model.Credential, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &ValidationError{Provider: provider, Reason: "API key cannot be empty"}
	}

	if s.validator != nil {
		var integ *model.Integration
		if strings.HasPrefix(provider, "custom_") {
			found, err := s.repo.Integrations().GetByProviderID(ctx, userID, provider)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("failed to load integration: %w", err)
			}
			integ = found
		}
		if err := s.validator.Validate(ctx, provider, apiKey, integ); err != nil {
			return nil, err
		}
	}

	encrypted, err := s.enc.EncryptString(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}

	now := time.Now().UTC()
	cred := &model.Credential{
		UserID:       userID,
		Provider:     provider,
		EncryptedKey: encrypted,
		KeyPrefix:    KeyPrefix(apiKey),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Credentials().Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	s.Invalidate(ctx, userID, provider)
	return cred, nil
}

func (s *Service) Delete(ctx context.Context, userID, provider string) error {
	if err := s.repo.Credentials().Delete(ctx, userID, provider); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	s.Invalidate(ctx, userID, provider)
	return nil
}

// List returns the user's stored credentials; key material is never included.
func (s *Service) List(ctx context.Context, userID string) ([]model.Credential, error) {
	creds, err := s.repo.Credentials().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// Invalidate drops cached plaintext for (userID, provider) here and on peers.
// An empty provider clears every entry for the user.
func (s *Service) Invalidate(ctx context.Context, userID, provider string) {
	s.cache.Invalidate(userID, provider)
	if err := s.bus.Publish(ctx, userID, provider); err != nil {
		s.logger.Warn("failed to notify peers of credential change",
			zap.String("user_id", userID),
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
}

// KeyPrefix is the display form of a key: enough to recognise it, not to use it.
func KeyPrefix(apiKey string) string {
	n := 7
	if strings.HasPrefix(apiKey, "sk-ant-") {
		n = 10
	}
	if len(apiKey) < n+8 {
		return "****"
	}
	return apiKey[:n] + "..." + apiKey[len(apiKey)-4:]
}
