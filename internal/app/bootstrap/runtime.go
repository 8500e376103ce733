package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/medspa-booking-assistant/internal/config"
	"github.com/wolfman30/medspa-booking-assistant/internal/session"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionKV picks the persistence backend for the session id and
// patient profile. An unreachable Redis degrades to the state file so the
// assistant still starts. The returned closer releases backend resources.
func BuildSessionKV(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (session.KV, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }

	switch cfg.SessionBackend {
	case "", "file":
		logger.Debug("session state on disk", "path", cfg.StatePath)
		return session.NewFileKV(cfg.StatePath), noop, nil
	case "memory":
		return session.NewMemoryKV(), noop, nil
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			logger.Warn("falling back to file session state", "path", cfg.StatePath)
			return session.NewFileKV(cfg.StatePath), noop, nil
		}
		logger.Info("session state in redis", "addr", cfg.RedisAddr)
		return session.NewRedisKV(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown session backend %q", cfg.SessionBackend)
	}
}
