// Package redis connects the optional Redis list store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"molecule/internal/platform/config"
	dErrors "molecule/pkg/domain-errors"
)

const defaultHealthTimeout = 2 * time.Second

// Client is a go-redis client that reports health through domain error codes.
type Client struct {
	*redis.Client
	logger        *slog.Logger
	healthTimeout time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHealthTimeout bounds a single Health ping.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.healthTimeout = d
		}
	}
}

// New connects using cfg and pings once. Zero-valued pool and timeout fields
// keep the go-redis defaults. Returns nil when no URL is configured.
func New(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid REDIS_URL")
	}
	applyConfig(redisOpts, cfg)

	c := &Client{
		Client:        redis.NewClient(redisOpts),
		healthTimeout: defaultHealthTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", redisOpts.Addr, err)
	}
	if c.logger != nil {
		c.logger.InfoContext(ctx, "redis connected",
			"addr", redisOpts.Addr,
			"db", redisOpts.DB,
			"pool_size", redisOpts.PoolSize,
		)
	}
	return c, nil
}

func applyConfig(o *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		o.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		o.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		o.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		o.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		o.WriteTimeout = cfg.WriteTimeout
	}
}

// Health pings Redis. A ping that outlives the health timeout is CodeTimeout;
// any other failure is CodeInternal.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	err := c.Ping(ctx).Err()
	if err == nil {
		return nil
	}
	code := dErrors.CodeInternal
	if errors.Is(err, context.DeadlineExceeded) {
		code = dErrors.CodeTimeout
	}
	if c.logger != nil {
		c.logger.WarnContext(ctx, "redis health check failed", "code", code, "error", err)
	}
	return dErrors.Wrap(err, code, "redis unreachable")
}
