// Package app assembles the router's components from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/internal/chat"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/credentials"
	"github.com/nulzo/chat-router/internal/gateway"
	"github.com/nulzo/chat-router/internal/integrations"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/netguard"
	"github.com/nulzo/chat-router/internal/server"
	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/sqlstore"
	"github.com/nulzo/chat-router/internal/version"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	// Import adapters to trigger init() registration
	_ "github.com/nulzo/chat-router/internal/llm/anthropic"
	_ "github.com/nulzo/chat-router/internal/llm/mistral"
	_ "github.com/nulzo/chat-router/internal/llm/openai"
)

// App owns every long-lived component. Build it with New, run Start, and
// always Close it.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Repo     store.Repository
	Registry *llm.Registry
	Server   *server.Server

	Credentials  *credentials.Service
	Integrations *integrations.Service

	ingestor analytics.Ingestor
	redis    *redis.Client
	bus      *credentials.RedisBus
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	enc, err := encryption(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Repo: repo}

	registry := gateway.BootstrapProviders(cfg.Providers.All(), logger)
	a.Registry = registry

	customAdapter, ok := registry.Get(cfg.Providers.Custom.ID)
	if !ok {
		_ = repo.Close()
		return nil, fmt.Errorf("custom adapter %q is not registered", cfg.Providers.Custom.ID)
	}

	classifier := netguard.NewClassifier(cfg.Security.Classifier)
	cloud := netguard.NewCloudDetector(cfg.Security.CloudIndicators, cfg.Security.CloudMode)

	cascade := gateway.NewCascade(customAdapter,
		gateway.WithClassifier(classifier),
		gateway.WithCloudDetector(cloud),
		gateway.WithAttemptTimeout(cfg.Cascade.AttemptTimeout),
		gateway.WithDeadline(cfg.Cascade.Deadline),
		gateway.WithPlaceholderKey(cfg.Cascade.PlaceholderKey),
		gateway.WithCascadeLogger(logger.Named("cascade")),
	)
	router := gateway.NewRouter(registry, cascade, logger.Named("router"))

	cache := credentials.NewCache(cfg.Credentials.CacheTTL)

	var invalidator credentials.Invalidator = credentials.NopInvalidator{}
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.bus = credentials.NewRedisBus(a.redis, cfg.Redis.Channel, cache, logger.Named("credential-bus"))
		invalidator = a.bus
	}

	var validator *credentials.Validator
	if cfg.Credentials.Validate {
		validator = credentials.NewValidator(registry, classifier, cloud)
	}

	credService := credentials.NewService(repo, enc, cache, validator, invalidator, logger.Named("credentials"))
	resolver := credentials.NewResolver(cache, repo.Credentials(), enc, logger.Named("credentials"))
	integService := integrations.NewService(repo, enc, credService, logger.Named("integrations"))
	a.Credentials = credService
	a.Integrations = integService

	a.ingestor = analytics.NewIngestor(logger.Named("analytics"), repo)
	chatService := chat.NewService(router, registry, resolver, integService, a.ingestor, logger.Named("chat"))

	a.Server = server.New(cfg, logger, server.Services{
		Chat:         chatService,
		Credentials:  credService,
		Integrations: integService,
		Analytics:    analytics.NewService(repo),
		Health:       repo,
		Version:      version.Version,
	})

	return a, nil
}

// Start launches background workers: the route-log ingestor and, when
// enabled, the Redis invalidation subscriber.
func (a *App) Start(ctx context.Context) error {
	a.ingestor.Start(ctx)
	if a.bus != nil {
		if err := a.bus.Start(ctx); err != nil {
			return fmt.Errorf("failed to subscribe to credential invalidations: %w", err)
		}
	}
	return nil
}

// Close flushes pending route logs and releases connections.
func (a *App) Close() error {
	a.ingestor.Stop()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return a.Repo.Close()
}

func encryption(cfg *config.Config, logger *zap.Logger) (*credentials.Encryption, error) {
	if cfg.Credentials.EncryptionKey != "" {
		enc, err := credentials.NewEncryptionFromSecret(cfg.Credentials.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials.encryption_key: %w", err)
		}
		return enc, nil
	}

	if cfg.Server.Env == "production" {
		return nil, fmt.Errorf("credentials.encryption_key is required in production")
	}

	key, err := credentials.GenerateKey(32)
	if err != nil {
		return nil, err
	}
	logger.Warn("No encryption key configured; using an ephemeral key. Stored credentials will not survive a restart.")
	return credentials.NewEncryptionFromBase64(key)
}
