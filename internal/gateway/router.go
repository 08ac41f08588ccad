package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Request is one routing call. Credential is the decrypted key for the
// provider; Integration is required when ProviderID is a custom id.
type Request struct {
	ProviderID  string
	Model       string
	Prompt      string
	Credential  string
	Integration *model.Integration
}

// Result is a normalized completion.
type Result struct {
	Reply string
	// Model is the provider's model id for hosted providers and the
	// integration name for custom ones.
	Model    string
	Attempts int
}

// Router dispatches requests to a hosted adapter or the custom cascade. It
// holds no per-request state.
type Router struct {
	registry *llm.Registry
	cascade  *Cascade
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewRouter(registry *llm.Registry, cascade *Cascade, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		registry: registry,
		cascade:  cascade,
		logger:   logger,
		tracer:   otel.Tracer("github.com/nulzo/chat-router/internal/gateway"),
	}
}

func (r *Router) Route(ctx context.Context, req Request) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "gateway.Router.Route", trace.WithAttributes(
		attribute.String("provider.id", req.ProviderID),
		attribute.String("model", req.Model),
	))
	defer span.End()

	start := time.Now()
	res, err := r.route(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		r.logger.Warn("route failed",
			zap.String("provider_id", req.ProviderID),
			zap.String("model", req.Model),
			zap.String("kind", string(KindOf(err))),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.String("resolved_model", res.Model))
	r.logger.Info("route completed",
		zap.String("provider_id", req.ProviderID),
		zap.String("resolved_model", res.Model),
		zap.Int("attempts", res.Attempts),
		zap.Duration("latency", time.Since(start)),
	)
	return res, nil
}

func (r *Router) route(ctx context.Context, req Request) (*Result, error) {
	target, err := ParseTarget(req.ProviderID, req.Integration)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case Hosted:
		return r.routeHosted(ctx, t, req)
	case Custom:
		return r.routeCustom(ctx, t, req)
	default:
		return nil, &RouteError{Kind: KindUnknownProvider, Provider: req.ProviderID, Message: "unsupported target"}
	}
}

func (r *Router) routeHosted(ctx context.Context, t Hosted, req Request) (*Result, error) {
	provider := string(t.Kind)
	if req.Credential == "" {
		return nil, &RouteError{
			Kind:     KindMissingCredential,
			Provider: provider,
			Message:  "no API key configured for " + provider + "; add or verify your key",
		}
	}

	adapter, ok := r.registry.Get(provider)
	if !ok {
		return nil, &RouteError{
			Kind:     KindUnknownProvider,
			Provider: provider,
			Message:  "provider " + provider + " is not enabled on this server",
		}
	}

	reply, err := adapter.Complete(ctx, llm.Completion{
		Model:  req.Model,
		Prompt: req.Prompt,
		APIKey: req.Credential,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredential) {
			return nil, &RouteError{Kind: KindMissingCredential, Provider: provider, Message: "missing credential", Err: err}
		}
		return nil, &RouteError{
			Kind:     KindUpstream,
			Provider: provider,
			Message:  LastUpstreamMessage(err),
			Err:      err,
		}
	}

	return &Result{Reply: reply, Model: req.Model, Attempts: 1}, nil
}

func (r *Router) routeCustom(ctx context.Context, t Custom, req Request) (*Result, error) {
	integ := t.Integration
	switch {
	case integ == nil:
		return nil, &RouteError{Kind: KindInvalidIntegration, Provider: t.ProviderID, Message: "no integration found for " + t.ProviderID}
	case !integ.IsActive:
		return nil, &RouteError{Kind: KindInvalidIntegration, Provider: t.ProviderID, Message: "integration " + integ.Name + " is disabled"}
	case integ.APIShape != "" && integ.APIShape != model.APIShapeOpenAI:
		return nil, &RouteError{Kind: KindInvalidIntegration, Provider: t.ProviderID, Message: "unsupported api shape " + integ.APIShape}
	}

	return r.cascade.Resolve(ctx, req.Prompt, DeriveModel(t.ProviderID, req.Model), req.Credential, integ)
}
