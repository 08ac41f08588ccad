// Package chat is the application entry point for one chat turn: it gathers
// the user's integration and credential and hands the request to the router.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/internal/credentials"
	"github.com/nulzo/chat-router/internal/gateway"
	"github.com/nulzo/chat-router/internal/integrations"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.uber.org/zap"
)

const MaxPromptLength = 100000

// ErrIntegrationNotFound is returned for a custom provider id with no integration.
var ErrIntegrationNotFound = errors.New("custom integration not found")

// InputError rejects a request before any upstream call is made.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string { return e.Field + ": " + e.Reason }

type CredentialResolver interface {
	Resolve(ctx context.Context, userID, provider string) (string, error)
}

type IntegrationLookup interface {
	GetByProviderID(ctx context.Context, userID, providerID string) (*model.Integration, error)
}

type Router interface {
	Route(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

// ModelLister is implemented by adapters that only accept a fixed set of models.
type ModelLister interface {
	Models() []string
}

type Input struct {
	ProviderID string
	Model      string
	Prompt     string
}

type Output struct {
	Reply     string
	UsedModel string
	Attempts  int
}

type Service struct {
	router       Router
	registry     *llm.Registry
	credentials  CredentialResolver
	integrations IntegrationLookup
	ingestor     analytics.Ingestor
	logger       *zap.Logger
}

// NewService wires the chat flow. A nil ingestor disables route logging.
func NewService(router Router, registry *llm.Registry, creds CredentialResolver, integs IntegrationLookup, ingestor analytics.Ingestor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		router:       router,
		registry:     registry,
		credentials:  creds,
		integrations: integs,
		ingestor:     ingestor,
		logger:       logger,
	}
}

func (s *Service) Send(ctx context.Context, userID string, in Input) (*Output, error) {
	start := time.Now()
	in.ProviderID = strings.TrimSpace(in.ProviderID)
	in.Model = strings.TrimSpace(in.Model)

	out, err := s.send(ctx, userID, in)
	s.record(userID, in, out, err, time.Since(start))
	return out, err
}

func (s *Service) send(ctx context.Context, userID string, in Input) (*Output, error) {
	prompt := strings.TrimSpace(in.Prompt)
	switch {
	case prompt == "":
		return nil, &InputError{Field: "prompt", Reason: "is required"}
	case utf8.RuneCountInString(prompt) > MaxPromptLength:
		return nil, &InputError{Field: "prompt", Reason: fmt.Sprintf("is too long (max %d characters)", MaxPromptLength)}
	}

	req := gateway.Request{
		ProviderID: in.ProviderID,
		Model:      in.Model,
		Prompt:     prompt,
	}

	custom := gateway.IsCustom(in.ProviderID)
	if custom {
		integ, err := s.integrations.GetByProviderID(ctx, userID, in.ProviderID)
		if err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrIntegrationNotFound, in.ProviderID)
			}
			return nil, err
		}
		req.Integration = integ
	} else if err := s.checkModel(in.ProviderID, in.Model); err != nil {
		return nil, err
	}

	key, err := s.credentials.Resolve(ctx, userID, in.ProviderID)
	switch {
	case err == nil:
		req.Credential = key
	case errors.Is(err, credentials.ErrNotFound):
		// hosted providers are refused by the router; custom ones may be keyless
	default:
		return nil, fmt.Errorf("failed to resolve credential for %s: %w", in.ProviderID, err)
	}

	res, err := s.router.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Output{Reply: res.Reply, UsedModel: res.Model, Attempts: res.Attempts}, nil
}

func (s *Service) checkModel(providerID, modelName string) error {
	if s.registry == nil {
		return nil
	}
	adapter, ok := s.registry.Get(providerID)
	if !ok {
		return nil
	}
	lister, ok := adapter.(ModelLister)
	if !ok || len(lister.Models()) == 0 {
		return nil
	}
	for _, m := range lister.Models() {
		if m == modelName {
			return nil
		}
	}
	return &InputError{
		Field:  "model",
		Reason: fmt.Sprintf("invalid model '%s'. Available %s models: %s", modelName, providerID, strings.Join(lister.Models(), ", ")),
	}
}

func (s *Service) record(userID string, in Input, out *Output, err error, latency time.Duration) {
	if s.ingestor == nil {
		return
	}
	entry := &model.RouteLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProviderID: in.ProviderID,
		Model:      in.Model,
		Outcome:    "ok",
		LatencyMS:  latency.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if out != nil {
		entry.ResolvedModel = out.UsedModel
		entry.Attempts = out.Attempts
	}
	if err != nil {
		entry.Outcome = outcome(err)
		entry.ErrorMessage = err.Error()
		var re *gateway.RouteError
		if errors.As(err, &re) {
			entry.Attempts = re.Attempted
			if re.Kind == gateway.KindUpstream {
				entry.Attempts = 1
			}
		}
	}
	s.ingestor.Log(entry)
}

func outcome(err error) string {
	var ie *InputError
	switch {
	case errors.As(err, &ie):
		return "invalid_input"
	case errors.Is(err, ErrIntegrationNotFound):
		return "integration_not_found"
	}
	if kind := gateway.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal_error"
}
