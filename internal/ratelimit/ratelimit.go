// Package ratelimit provides a fixed-window request limiter backed by
// Redis. It fails open: when Redis is unavailable the request is
// allowed rather than blocking logins on cache health.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "firelife:ratelimit:"

// Limiter counts requests per key in fixed windows
type Limiter struct {
	client  *redis.Client
	logger  zerolog.Logger
	timeout time.Duration
}

// New connects to Redis and returns a limiter. The connection is
// verified so callers can disable limiting when Redis is unreachable.
func New(addr string, logger zerolog.Logger) (*Limiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Limiter{
		client:  client,
		logger:  logger.With().Str("component", "ratelimit").Logger(),
		timeout: 250 * time.Millisecond,
	}, nil
}

// Allow reports whether the request identified by key is within limit
// for the current window.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	if window <= 0 {
		window = time.Minute
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	redisKey := keyPrefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn().Err(err).Str("op", "incr").Msg("Redis error - allowing request")
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			l.logger.Warn().Err(err).Str("op", "expire").Msg("Redis error")
		}
	}

	return count <= int64(limit)
}

// Close releases the Redis connection
func (l *Limiter) Close() error {
	return l.client.Close()
}
