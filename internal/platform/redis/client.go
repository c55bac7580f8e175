// Package redis opens the shared go-redis client used for the pending
// transaction journal.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"organchain/internal/platform/config"
	dErrors "organchain/pkg/domain-errors"
)

// Client embeds the go-redis client so callers use its API directly.
type Client struct {
	*redis.Client
}

// New connects using cfg and verifies the server answers. It returns nil and
// no error when no URL is configured; callers then keep journal entries in
// memory.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid redis url")
	}
	applyPool(opts, cfg)

	rc := &Client{Client: redis.NewClient(opts)}
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Client.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "redis did not answer ping")
	}
	return rc, nil
}

// applyPool copies the non-zero pool settings; zero values keep go-redis
// defaults.
func applyPool(opts *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}
