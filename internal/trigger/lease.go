// Package trigger guards externally triggered jobs so that only one replica
// runs a given job per cycle.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld indicates another runner currently holds the job lease.
var ErrLeaseHeld = errors.New("trigger: lease held by another runner")

// releaseScript deletes the lease only when it still carries our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// Guard runs a job at most once across concurrent callers.
type Guard interface {
	Run(ctx context.Context, job string, fn func(context.Context) error) error
}

// LocalGuard runs every job directly. It is used when no lease store is configured.
type LocalGuard struct{}

// Run implements Guard.
func (LocalGuard) Run(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

type leaseClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisGuard holds a Redis key with a TTL for the duration of a job. The TTL
// bounds how long a crashed runner can block the next cycle.
type RedisGuard struct {
	client leaseClient
	prefix string
	ttl    time.Duration
	token  func() string
	logger *slog.Logger
}

// NewRedisGuard constructs a guard backed by client.
func NewRedisGuard(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	return newRedisGuard(client, prefix, ttl, logger)
}

func newRedisGuard(client leaseClient, prefix string, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	if prefix == "" {
		prefix = "camp:lease:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl, token: uuid.NewString, logger: logger}
}

// Run acquires the lease for job, runs fn and releases the lease. It returns
// ErrLeaseHeld without running fn when another runner holds the lease.
func (g *RedisGuard) Run(ctx context.Context, job string, fn func(context.Context) error) error {
	key := g.prefix + job
	token := g.token()

	acquired, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("trigger: acquire %s: %w", key, err)
	}
	if !acquired {
		g.logger.InfoContext(ctx, "job lease held elsewhere, skipping", "job", job)
		return ErrLeaseHeld
	}

	defer func() {
		// Release must outlive cancellation of ctx.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := g.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
			g.logger.WarnContext(ctx, "failed to release job lease", "job", job, "error", err)
		}
	}()

	return fn(ctx)
}

// NewRedisClient builds a client for addr and verifies it answers PING.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("trigger: ping redis %s: %w", addr, err)
	}
	return client, nil
}
