package artifacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"eventsds/internal/config"
)

type redisBackend struct {
	client *redis.Client
	prefix string
}

func newRedisBackend(ctx context.Context, cfg config.ArtifactsConfig) (*redisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: 3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &redisBackend{
		client: client,
		prefix: fmt.Sprintf("%s:%s", cfg.Redis.Prefix, cfg.Namespace),
	}, nil
}

func (r *redisBackend) describe(name string) string {
	return fmt.Sprintf("redis key %s:%s", r.prefix, name)
}

func (r *redisBackend) key(name string) string {
	return r.prefix + ":" + name
}

func (r *redisBackend) put(ctx context.Context, name string, data []byte) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(name), data, 0).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	existing, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err != nil {
		return false, err
	}
	return false, conflict(existing, data, r.describe(name))
}

func (r *redisBackend) remove(ctx context.Context, name string) error {
	return r.client.Del(ctx, r.key(name)).Err()
}

func (r *redisBackend) get(ctx context.Context, name string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, r.describe(name))
	}
	return data, err
}

func (r *redisBackend) Close() error {
	return r.client.Close()
}
