package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/netguard"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultAttemptTimeout = 30 * time.Second
	DefaultPlaceholderKey = "ollama"
)

// CloudDetector reports whether loopback endpoints must be refused.
type CloudDetector interface {
	IsCloud() bool
}

// Cascade tries the endpoints of a custom Integration one at a time, in
// stored order, until one answers.
type Cascade struct {
	provider       llm.Provider
	classifier     netguard.Classifier
	cloud          CloudDetector
	attemptTimeout time.Duration
	deadline       time.Duration
	placeholder    string
	logger         *zap.Logger
	tracer         trace.Tracer
}

type CascadeOption func(*Cascade)

func WithClassifier(c netguard.Classifier) CascadeOption {
	return func(cs *Cascade) { cs.classifier = c }
}

func WithCloudDetector(d CloudDetector) CascadeOption {
	return func(cs *Cascade) { cs.cloud = d }
}

func WithAttemptTimeout(d time.Duration) CascadeOption {
	return func(cs *Cascade) {
		if d > 0 {
			cs.attemptTimeout = d
		}
	}
}

// WithDeadline bounds the whole cascade. Zero leaves it unbounded.
func WithDeadline(d time.Duration) CascadeOption {
	return func(cs *Cascade) { cs.deadline = d }
}

func WithPlaceholderKey(key string) CascadeOption {
	return func(cs *Cascade) {
		if key != "" {
			cs.placeholder = key
		}
	}
}

func WithCascadeLogger(l *zap.Logger) CascadeOption {
	return func(cs *Cascade) { cs.logger = l }
}

// NewCascade builds a cascade that calls provider for every attempt. The
// provider must accept a per-call BaseURL.
func NewCascade(provider llm.Provider, opts ...CascadeOption) *Cascade {
	c := &Cascade{
		provider:       provider,
		classifier:     netguard.HostMatch{},
		cloud:          netguard.NewCloudDetector(nil, netguard.ModeAuto),
		attemptTimeout: DefaultAttemptTimeout,
		placeholder:    DefaultPlaceholderKey,
		logger:         zap.NewNop(),
		tracer:         otel.Tracer("github.com/nulzo/chat-router/internal/gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candidate struct {
	url     string
	apiKey  string
	primary bool
}

// candidates lists the primary endpoint, when set, followed by the fallbacks.
// Keys fall back from the endpoint's own key to the caller's credential and
// finally to the placeholder that keyless local servers accept.
func (c *Cascade) candidates(integration *model.Integration, credential string) []candidate {
	out := make([]candidate, 0, integration.EndpointCount())
	if integration.BaseURL != "" {
		out = append(out, candidate{
			url:     integration.BaseURL,
			apiKey:  firstNonEmpty(credential, c.placeholder),
			primary: true,
		})
	}
	for _, fb := range integration.Fallbacks {
		out = append(out, candidate{
			url:     fb.URL,
			apiKey:  firstNonEmpty(fb.APIKey, credential, c.placeholder),
			primary: len(out) == 0,
		})
	}
	return out
}

// Resolve runs the cascade for one request. The result's Model is the
// integration name, since local servers rarely report a useful model id.
func (c *Cascade) Resolve(ctx context.Context, prompt, modelName, credential string, integration *model.Integration) (*Result, error) {
	if integration == nil {
		return nil, &RouteError{Kind: KindInvalidIntegration, Message: "integration is required for custom providers"}
	}

	ctx, span := c.tracer.Start(ctx, "gateway.Cascade.Resolve", trace.WithAttributes(
		attribute.String("provider.id", integration.ProviderID),
		attribute.String("integration.name", integration.Name),
	))
	defer span.End()

	candidates := c.candidates(integration, credential)
	if len(candidates) == 0 {
		err := &RouteError{
			Kind:     KindInvalidIntegration,
			Provider: integration.ProviderID,
			Message:  "integration has no endpoints configured",
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	isCloud := c.cloud.IsCloud()
	span.SetAttributes(
		attribute.Bool("cascade.cloud", isCloud),
		attribute.Int("cascade.candidates", len(candidates)),
	)

	if isCloud && len(candidates) == 1 && c.classifier.IsLoopback(candidates[0].url) {
		err := &RouteError{
			Kind:       KindLocalhostOnCloud,
			Provider:   integration.ProviderID,
			Message:    "local endpoints cannot be reached from a cloud deployment; use the desktop app or add a public fallback",
			Candidates: 1,
		}
		c.logger.Warn("refusing loopback endpoint on cloud",
			zap.String("provider_id", integration.ProviderID),
			zap.String("url", candidates[0].url),
		)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	var (
		attempted int
		lastErr   error
	)

	for i, cand := range candidates {
		log := c.logger.With(
			zap.String("provider_id", integration.ProviderID),
			zap.Int("candidate", i),
			zap.Bool("primary", cand.primary),
			zap.String("url", cand.url),
		)

		if cand.url == "" {
			log.Debug("skipping candidate without url")
			continue
		}
		if isCloud && c.classifier.IsLoopback(cand.url) {
			log.Warn("skipping loopback candidate on cloud")
			continue
		}
		if err := ctx.Err(); err != nil {
			// keep the last upstream failure so the caller still sees why
			lastErr = errors.Join(lastErr, err)
			log.Warn("cascade deadline reached", zap.Error(err))
			break
		}

		attempted++
		start := time.Now()
		reply, err := c.provider.Complete(ctx, llm.Completion{
			Model:   modelName,
			Prompt:  prompt,
			APIKey:  cand.apiKey,
			BaseURL: cand.url,
			Timeout: c.attemptTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				lastErr = errors.Join(lastErr, err)
			} else {
				lastErr = err
			}
			log.Warn("candidate failed",
				zap.Duration("latency", time.Since(start)),
				zap.Error(err),
			)
			continue
		}

		log.Info("candidate succeeded", zap.Duration("latency", time.Since(start)))
		span.SetAttributes(attribute.Int("cascade.attempted", attempted))
		return &Result{Reply: reply, Model: integration.Name, Attempts: attempted}, nil
	}

	msg := "all fallbacks exhausted"
	switch {
	case attempted == 0 && lastErr == nil:
		msg = "all fallbacks exhausted; every endpoint was skipped"
	case ctx.Err() != nil:
		msg = "all fallbacks exhausted; cascade deadline reached"
	}
	err := &RouteError{
		Kind:       KindAllFallbacksExhausted,
		Provider:   integration.ProviderID,
		Message:    msg,
		Attempted:  attempted,
		Candidates: len(candidates),
		Err:        lastErr,
	}
	span.SetAttributes(attribute.Int("cascade.attempted", attempted))
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// LastUpstreamMessage returns the upstream message carried by err, if any.
func LastUpstreamMessage(err error) string {
	var ue *llm.UpstreamError
	if errors.As(err, &ue) {
		return ue.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
