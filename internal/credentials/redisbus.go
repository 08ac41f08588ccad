package credentials

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Invalidator tells other replicas that a credential changed.
type Invalidator interface {
	Publish(ctx context.Context, userID, provider string) error
}

// NopInvalidator is used when the process runs alone.
type NopInvalidator struct{}

func (NopInvalidator) Publish(context.Context, string, string) error { return nil }

type invalidation struct {
	Origin   string `json:"origin"`
	UserID   string `json:"user_id"`
	Provider string `json:"provider,omitempty"`
}

// RedisBus fans credential invalidations out over Redis pub/sub. Only the
// (user, provider) pair crosses the wire, never key material.
type RedisBus struct {
	client  redis.UniversalClient
	channel string
	cache   *Cache
	origin  string
	logger  *zap.Logger
}

func NewRedisBus(client redis.UniversalClient, channel string, cache *Cache, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		cache:   cache,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

func (b *RedisBus) Publish(ctx context.Context, userID, provider string) error {
	payload, err := json.Marshal(invalidation{Origin: b.origin, UserID: userID, Provider: provider})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Start subscribes and returns once the subscription is confirmed. Messages
// are handled on a background goroutine until ctx is cancelled.
func (b *RedisBus) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.handle(msg.Payload)
			}
		}
	}()

	b.logger.Info("credential invalidation bus subscribed", zap.String("channel", b.channel))
	return nil
}

func (b *RedisBus) handle(payload string) {
	var inv invalidation
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		b.logger.Warn("ignoring malformed invalidation", zap.Error(err))
		return
	}
	if inv.Origin == b.origin || inv.UserID == "" {
		return
	}
	b.cache.Invalidate(inv.UserID, inv.Provider)
	b.logger.Debug("credential invalidated by peer",
		zap.String("user_id", inv.UserID),
		zap.String("provider", inv.Provider),
	)
}
