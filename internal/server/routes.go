package server

import (
	"github.com/nulzo/chat-router/internal/server/middleware"
	v1 "github.com/nulzo/chat-router/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler(s.services.Version, s.services.Health)
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	api := s.router.Group("/v1")
	api.Use(middleware.Identity())
	api.Use(limiter.Middleware())
	{
		chatHandler := v1.NewChatHandler(s.services.Chat)
		api.POST("/chat", chatHandler.Send)

		credHandler := v1.NewCredentialHandler(s.services.Credentials)
		api.GET("/credentials", credHandler.List)
		api.PUT("/credentials/:provider", credHandler.Put)
		api.DELETE("/credentials/:provider", credHandler.Delete)

		integHandler := v1.NewIntegrationHandler(s.services.Integrations)
		api.GET("/integrations", integHandler.List)
		api.POST("/integrations", integHandler.Create)
		api.GET("/integrations/:id", integHandler.Get)
		api.PUT("/integrations/:id", integHandler.Update)
		api.DELETE("/integrations/:id", integHandler.Delete)

		routesHandler := v1.NewRoutesHandler(s.services.Analytics)
		api.GET("/routes", routesHandler.Recent)
		api.GET("/routes/stats", routesHandler.Stats)
	}
}
