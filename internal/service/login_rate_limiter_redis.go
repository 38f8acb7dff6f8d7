package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// recordLoginFailure counts a failure and starts the window on the first one,
// so the lockout lifts a full window after the first failed attempt.
const recordLoginFailure = `
local failures = redis.call("INCR", KEYS[1])
if failures == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return failures
`

type redisLoginClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// redisLoginRateLimiter shares failure counts between API instances. Redis
// outages never lock anyone out: errors are logged and the attempt goes on.
type redisLoginRateLimiter struct {
	logger  *zap.Logger
	client  redisLoginClient
	window  time.Duration
	max     int64
	prefix  string
	timeout time.Duration
}

func NewRedisLoginRateLimiter(logger *zap.Logger, client *redis.Client, window time.Duration, max int) LoginRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisLoginRateLimiter(logger, client, window, max)
}

func newRedisLoginRateLimiter(logger *zap.Logger, client redisLoginClient, window time.Duration, max int) *redisLoginRateLimiter {
	if window < time.Second {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginRateLimiter{
		logger:  logger,
		client:  client,
		window:  window,
		max:     int64(max),
		prefix:  "login:fail:",
		timeout: 500 * time.Millisecond,
	}
}

func (l *redisLoginRateLimiter) Allow(ctx context.Context, email string) bool {
	key := loginAttemptKey(email)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	failures, err := l.client.Get(ctx, l.prefix+key).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return true
	case err != nil:
		l.logger.Warn("read login failures", zap.Error(err))
		return true
	}
	return failures < l.max
}

func (l *redisLoginRateLimiter) Fail(ctx context.Context, email string) {
	key := loginAttemptKey(email)
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	seconds := int(l.window / time.Second)
	if err := l.client.Eval(ctx, recordLoginFailure, []string{l.prefix + key}, seconds).Err(); err != nil {
		l.logger.Warn("record login failure", zap.Error(err))
	}
}

func (l *redisLoginRateLimiter) Reset(ctx context.Context, email string) {
	key := loginAttemptKey(email)
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		l.logger.Warn("clear login failures", zap.Error(err))
	}
}
