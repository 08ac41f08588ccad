package gateway

import (
	"fmt"

	"github.com/nulzo/chat-router/internal/cli"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	"go.uber.org/zap"
)

// BootstrapProviders builds the adapter registry from configuration. A
// provider that fails to initialize is logged and skipped so the rest of the
// server can still start. Credentials are per user, so no health probe runs here.
func BootstrapProviders(providers []config.ProviderConfig, log *zap.Logger) *llm.Registry {
	registry := llm.NewRegistry()

	for _, pCfg := range providers {
		if pCfg.ID == "" {
			continue
		}

		factoryFunc, err := llm.GetFactory(pCfg.Type)
		if err != nil {
			log.Error("Unknown provider type", zap.String("id", pCfg.ID), zap.String("type", pCfg.Type))
			continue
		}

		providerInstance, err := factoryFunc(pCfg)
		if err != nil {
			log.Warn(fmt.Sprintf("%s %s %s",
				cli.CrossMark(),
				cli.Style(fmt.Sprintf("%s\t", pCfg.ID), cli.Bold),
				cli.Style("Skipping provider: "+err.Error(), cli.Yellow),
			))
			continue
		}

		registry.Add(providerInstance)
		log.Debug("provider registered", zap.String("id", pCfg.ID), zap.String("base_url", pCfg.BaseURL))
	}

	if len(registry.IDs()) == 0 {
		log.Warn("No providers were registered. API will not function correctly.")
	}

	return registry
}
