package analytics

import (
	"context"

	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

type Service interface {
	Recent(ctx context.Context, userID string, limit int) ([]model.RouteLog, error)
	Stats(ctx context.Context, userID string) ([]model.RouteStats, error)
}

type service struct {
	repo store.Repository
}

func NewService(repo store.Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) Recent(ctx context.Context, userID string, limit int) ([]model.RouteLog, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.repo.Routes().GetRecent(ctx, userID, limit)
}

func (s *service) Stats(ctx context.Context, userID string) ([]model.RouteStats, error) {
	return s.repo.Routes().GetStats(ctx, userID)
}
