package dispatch

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"filegov/internal/notification/models"
)

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisDispatcher publishes each entry on a per-recipient channel,
// "<prefix>:<actor id>", for connected consoles to pick up.
type RedisDispatcher struct {
	client Publisher
	prefix string
}

func NewRedis(client Publisher, prefix string) *RedisDispatcher {
	return &RedisDispatcher{client: client, prefix: prefix}
}

func (d *RedisDispatcher) Name() string { return "redis" }

func (d *RedisDispatcher) Channel(entry *models.Entry) string {
	return d.prefix + ":" + entry.RecipientID.String()
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, entry *models.Entry) error {
	payload, err := encode(entry)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := d.client.Publish(ctx, d.Channel(entry), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
