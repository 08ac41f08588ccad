// Package integrations manages user-defined OpenAI-compatible providers.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/chat-router/internal/credentials"
	"github.com/nulzo/chat-router/internal/gateway"
	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("integration not found")
	ErrConflict = errors.New("an integration with this name already exists")
)

// CredentialInvalidator drops cached credentials when an integration changes.
type CredentialInvalidator interface {
	Invalidate(ctx context.Context, userID, provider string)
}

// Input is the user-supplied part of an Integration.
type Input struct {
	Name      string
	BaseURL   string
	APIShape  string
	Fallbacks []model.Endpoint
	IsActive  *bool
}

type Service struct {
	repo        store.Repository
	enc         *credentials.Encryption
	invalidator CredentialInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(repo store.Repository, enc *credentials.Encryption, invalidator CredentialInvalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, enc: enc, invalidator: invalidator, logger: logger, now: time.Now}
}

// Create stores a new integration. When the derived provider id already
// exists for the user the existing integration is returned unchanged and
// created is false.
func (s *Service) Create(ctx context.Context, userID string, in Input) (integ *model.Integration, created bool, err error) {
	clean, err := normalize(in)
	if err != nil {
		return nil, false, err
	}

	providerID := ProviderID(clean.Name)
	existing, err := s.GetByProviderID(ctx, userID, providerID)
	switch {
	case err == nil:
		s.logger.Info("integration already exists, returning existing",
			zap.String("user_id", userID),
			zap.String("provider_id", providerID),
		)
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	now := s.now().UTC()
	integ = &model.Integration{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       clean.Name,
		ProviderID: providerID,
		BaseURL:    clean.BaseURL,
		APIShape:   clean.APIShape,
		IsActive:   clean.IsActive == nil || *clean.IsActive,
		Fallbacks:  clean.Fallbacks,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.seal(integ); err != nil {
		return nil, false, err
	}

	if err := s.repo.Integrations().Create(ctx, integ); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, false, ErrConflict
		}
		return nil, false, fmt.Errorf("failed to create integration: %w", err)
	}

	s.logger.Info("integration created",
		zap.String("user_id", userID),
		zap.String("provider_id", providerID),
		zap.Int("endpoints", integ.EndpointCount()),
	)
	return integ, true, nil
}

// Update replaces the user-supplied fields. A rename re-derives the provider id.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (*model.Integration, error) {
	clean, err := normalize(in)
	if err != nil {
		return nil, err
	}

	integ, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	oldProviderID := integ.ProviderID

	if integ.Name != clean.Name {
		integ.ProviderID = ProviderID(clean.Name)
	}
	integ.Name = clean.Name
	integ.BaseURL = clean.BaseURL
	integ.APIShape = clean.APIShape
	integ.Fallbacks = clean.Fallbacks
	if clean.IsActive != nil {
		integ.IsActive = *clean.IsActive
	}
	integ.UpdatedAt = s.now().UTC()

	if err := s.seal(integ); err != nil {
		return nil, err
	}
	if err := s.repo.Integrations().Update(ctx, integ); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, ErrConflict
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update integration: %w", err)
	}

	s.invalidate(ctx, userID, oldProviderID)
	if integ.ProviderID != oldProviderID {
		s.invalidate(ctx, userID, integ.ProviderID)
	}
	return integ, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	integ, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Integrations().Delete(ctx, userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	s.invalidate(ctx, userID, integ.ProviderID)
	return nil
}

func (s *Service) List(ctx context.Context, userID string) ([]model.Integration, error) {
	integs, err := s.repo.Integrations().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	for i := range integs {
		if err := s.open(&integs[i]); err != nil {
			return nil, err
		}
	}
	return integs, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*model.Integration, error) {
	integ, err := s.repo.Integrations().GetByID(ctx, userID, id)
	return s.loaded(integ, err)
}

// GetByProviderID looks an integration up by its custom provider id.
func (s *Service) GetByProviderID(ctx context.Context, userID, providerID string) (*model.Integration, error) {
	integ, err := s.repo.Integrations().GetByProviderID(ctx, userID, providerID)
	return s.loaded(integ, err)
}

func (s *Service) loaded(integ *model.Integration, err error) (*model.Integration, error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if err := s.open(integ); err != nil {
		return nil, err
	}
	return integ, nil
}

// seal encrypts Fallbacks into FallbacksEnc; fallback keys never hit the store in clear.
func (s *Service) seal(integ *model.Integration) error {
	if len(integ.Fallbacks) == 0 {
		integ.FallbacksEnc = ""
		return nil
	}
	enc, err := s.enc.EncryptJSON(integ.Fallbacks)
	if err != nil {
		return fmt.Errorf("failed to encrypt fallbacks: %w", err)
	}
	integ.FallbacksEnc = enc
	return nil
}

func (s *Service) open(integ *model.Integration) error {
	if integ.FallbacksEnc == "" {
		integ.Fallbacks = nil
		return nil
	}
	var fbs []model.Endpoint
	if err := s.enc.DecryptJSON(integ.FallbacksEnc, &fbs); err != nil {
		return fmt.Errorf("failed to decrypt fallbacks for %s: %w", integ.ProviderID, err)
	}
	integ.Fallbacks = fbs
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID, providerID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID, providerID)
	}
}

func normalize(in Input) (Input, error) {
	name, err := ValidateName(in.Name, "Integration name")
	if err != nil {
		return in, err
	}
	if ProviderID(name) == gateway.CustomPrefix {
		return in, &InvalidInputError{Field: "Integration name", Reason: "must contain letters or digits"}
	}

	base, err := ValidateURL(in.BaseURL, "Base URL")
	if err != nil {
		return in, err
	}

	shape := strings.ToLower(strings.TrimSpace(in.APIShape))
	if shape == "" {
		shape = model.APIShapeOpenAI
	}
	if shape != model.APIShapeOpenAI {
		return in, &InvalidInputError{Field: "API type", Reason: "unsupported API type " + shape}
	}

	fallbacks := make([]model.Endpoint, 0, len(in.Fallbacks))
	for i, fb := range in.Fallbacks {
		u, err := ValidateURL(fb.URL, fmt.Sprintf("Fallback %d URL", i+1))
		if err != nil {
			return in, err
		}
		if u == "" {
			return in, &InvalidInputError{Field: fmt.Sprintf("Fallback %d URL", i+1), Reason: "is required"}
		}
		fallbacks = append(fallbacks, model.Endpoint{URL: u, APIKey: strings.TrimSpace(fb.APIKey)})
	}

	return Input{
		Name:      name,
		BaseURL:   base,
		APIShape:  shape,
		Fallbacks: fallbacks,
		IsActive:  in.IsActive,
	}, nil
}
