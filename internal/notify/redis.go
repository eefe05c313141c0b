package notify

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/library-lending/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ListPusher is the subset of the redis client the outbox needs
type ListPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisNotifier appends notifications to a redis list consumed by the mail
// and push workers
type RedisNotifier struct {
	client ListPusher
	key    string
	retry  *retryConfig
}

func NewRedisNotifier(client ListPusher, key string, options ...RetryOption) (*RedisNotifier, error) {
	if key == "" {
		return nil, fmt.Errorf("notification key must not be empty")
	}

	c, err := newRetryConfig(options...)
	if err != nil {
		return nil, err
	}

	return &RedisNotifier{client: client, key: key, retry: c}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	err = retry(ctx, n.retry, func(ctx context.Context) error {
		return n.client.RPush(ctx, n.key, payload).Err()
	})
	if err != nil {
		return fmt.Errorf("push notification to %s: %w", n.key, err)
	}
	return nil
}
