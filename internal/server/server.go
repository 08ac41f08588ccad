package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/internal/chat"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/credentials"
	"github.com/nulzo/chat-router/internal/integrations"
	"github.com/nulzo/chat-router/internal/server/middleware"
	"github.com/nulzo/chat-router/internal/server/validator"
	v1 "github.com/nulzo/chat-router/internal/server/v1"
	"go.uber.org/zap"
)

// Services are the application services the HTTP layer exposes.
type Services struct {
	Chat         *chat.Service
	Credentials  *credentials.Service
	Integrations *integrations.Service
	Analytics    analytics.Service
	Health       v1.Pinger
	Version      string
}

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	services Services
	http     *http.Server
}

func New(cfg *config.Config, logger *zap.Logger, services Services) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.InitValidator()

	engine := gin.New()

	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	}
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router:   engine,
		services: services,
		logger:   logger,
		config:   cfg,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return s.http.Shutdown(shutdownCtx)
}
