package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/nulzo/chat-router/internal/app"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/integrations"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.uber.org/zap"
)

// seed stores a local Ollama integration with a public fallback and,
// optionally, an OpenAI key for one user, so the router can be exercised
// without the settings UI.
func main() {
	userID := flag.String("user", "dev-user", "User id to seed data for")
	openaiKey := flag.String("openai-key", "", "OpenAI API key to store (skipped when empty)")
	localURL := flag.String("local-url", "http://localhost:11434/v1", "Primary endpoint of the seeded integration")
	fallbackURL := flag.String("fallback-url", "", "Public fallback endpoint (skipped when empty)")
	fallbackKey := flag.String("fallback-key", "", "API key for the fallback endpoint")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	// seeding must not depend on reaching the upstream
	cfg.Credentials.Validate = false

	logger, _ := zap.NewDevelopment()
	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = application.Close() }()

	ctx := context.Background()

	// the provider id custom_local_llama3_2 resolves to the model llama3.2
	in := integrations.Input{Name: "local llama3_2", BaseURL: *localURL}
	if *fallbackURL != "" {
		in.Fallbacks = []model.Endpoint{{URL: *fallbackURL, APIKey: *fallbackKey}}
	}
	integ, created, err := application.Integrations.Create(ctx, *userID, in)
	if err != nil {
		log.Fatalf("Failed to seed integration: %v", err)
	}
	if created {
		fmt.Printf("Created integration %s (%s)\n", integ.Name, integ.ProviderID)
	} else {
		fmt.Printf("Integration %s already exists\n", integ.ProviderID)
	}

	if *openaiKey != "" {
		cred, err := application.Credentials.Save(ctx, *userID, "openai", *openaiKey)
		if err != nil {
			log.Fatalf("Failed to seed credential: %v", err)
		}
		fmt.Printf("Stored openai key %s\n", cred.KeyPrefix)
	}

	fmt.Printf("\nSuccessfully seeded database!\n")
	fmt.Printf("Send requests with the header: X-User-ID: %s\n", *userID)
}
