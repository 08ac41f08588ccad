package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/chat-router/internal/app"
	"github.com/nulzo/chat-router/internal/cli"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/platform/logger"
	"github.com/nulzo/chat-router/internal/platform/otel"
	"github.com/nulzo/chat-router/internal/version"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	zapLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	shutdownTracer, err := otel.InitTracer(cfg.Tracing, zapLogger, os.Stdout)
	if err != nil {
		zapLogger.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	if err := application.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start background workers", zap.Error(err))
	}

	if cfg.Log.Format != "json" {
		cli.PrintBanner(os.Stdout, version.Version, ":"+cfg.Server.Port, application.Registry.IDs())
	}

	if cfg.UpdateCheck.Enabled {
		go version.NewChecker(cfg.UpdateCheck.Repo).CheckForUpdates(ctx, zapLogger)
	}

	if err := application.Server.Run(ctx); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
	}

	// flushes route logs written while the server drained
	if err := application.Close(); err != nil {
		zapLogger.Error("Failed to close application", zap.Error(err))
	}

	tracerCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(tracerCtx); err != nil {
		zapLogger.Error("Failed to shut down tracer", zap.Error(err))
	}
	zapLogger.Info("Server exited")
}
