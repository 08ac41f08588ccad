package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/nulzo/chat-router/internal/store"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("credential not found")

// Resolver is the read path: cache first, then store and decrypt.
type Resolver struct {
	cache  *Cache
	repo   store.CredentialRepository
	enc    *Encryption
	logger *zap.Logger
}

func NewResolver(cache *Cache, repo store.CredentialRepository, enc *Encryption, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cache: cache, repo: repo, enc: enc, logger: logger}
}

// Resolve returns the plaintext key for (userID, provider) or ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, userID, provider string) (string, error) {
	if v, ok := r.cache.Get(userID, provider); ok {
		return v, nil
	}

	// read before the load so a concurrent Save or Delete wins over this fill
	gen := r.cache.Generation(userID, provider)
	cred, err := r.repo.Get(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load credential: %w", err)
	}

	plaintext, err := r.enc.DecryptString(cred.EncryptedKey)
	if err != nil {
		r.logger.Error("stored credential cannot be decrypted",
			zap.String("user_id", userID),
			zap.String("provider", provider),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}

	if !r.cache.SetIfGeneration(userID, provider, plaintext, 0, gen) {
		r.logger.Debug("credential changed during load, not caching",
			zap.String("user_id", userID),
			zap.String("provider", provider),
		)
	}
	return plaintext, nil
}
