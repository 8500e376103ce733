package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisKV shares widget state through redis so several front-ends on one
// profile see the same session.
type RedisKV struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisKV wraps a redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisKV{
		redis:  client,
		tracer: otel.Tracer("assistant.internal.session.redis"),
	}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "session.kv.get")
	defer span.End()

	v, err := r.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("session: redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	ctx, span := r.tracer.Start(ctx, "session.kv.set")
	defer span.End()

	// No TTL: the identifier must survive until an explicit reset.
	if err := r.redis.Set(ctx, key, value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	ctx, span := r.tracer.Start(ctx, "session.kv.delete")
	defer span.End()

	if err := r.redis.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: redis del %s: %w", key, err)
	}
	return nil
}
