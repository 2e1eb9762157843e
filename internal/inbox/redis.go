package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is an Inbox backed by Redis keys with a TTL, shared by every
// replica of a consumer.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("inbox: ping redis at %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Seen(ctx context.Context, subscription, eventID string) (bool, error) {
	_, err := r.client.Get(ctx, Key(subscription, eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inbox: get: %w", err)
	}
	return true, nil
}

func (r *Redis) Mark(ctx context.Context, subscription, eventID string) error {
	if err := r.client.SetNX(ctx, Key(subscription, eventID), time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("inbox: set: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
