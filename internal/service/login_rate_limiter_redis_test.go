package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type mockLoginRedis struct {
	failures map[string]int64
	err      error
	evalKeys []string
	evalArgs []interface{}
	deleted  []string
}

func newMockLoginRedis() *mockLoginRedis {
	return &mockLoginRedis{failures: make(map[string]int64)}
}

func (m *mockLoginRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	n, ok := m.failures[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(fmt.Sprint(n))
	return cmd
}

func (m *mockLoginRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.evalKeys = keys
	m.evalArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	if script != recordLoginFailure {
		cmd.SetErr(errors.New("unexpected script"))
		return cmd
	}
	m.failures[keys[0]]++
	cmd.SetVal(m.failures[keys[0]])
	return cmd
}

func (m *mockLoginRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.deleted = append(m.deleted, keys...)
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	for _, k := range keys {
		delete(m.failures, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestRedisLoginRateLimiter_CountsFailuresPerEmail(t *testing.T) {
	ctx := context.Background()
	mock := newMockLoginRedis()
	l := newRedisLoginRateLimiter(zap.NewNop(), mock, 2*time.Minute, 2)

	if !l.Allow(ctx, "ana@example.com") {
		t.Fatalf("expected allow with no failures")
	}
	l.Fail(ctx, " Ana@Example.com ")
	if len(mock.evalKeys) != 1 || mock.evalKeys[0] != "login:fail:ana@example.com" {
		t.Fatalf("unexpected key, got %+v", mock.evalKeys)
	}
	if len(mock.evalArgs) != 1 || mock.evalArgs[0] != 120 {
		t.Fatalf("expected window of 120 seconds, got %+v", mock.evalArgs)
	}
	if !l.Allow(ctx, "ana@example.com") {
		t.Fatalf("expected allow below max")
	}
	l.Fail(ctx, "ANA@example.com")
	if l.Allow(ctx, "ana@example.com") {
		t.Fatalf("expected deny at max")
	}
}

func TestRedisLoginRateLimiter_ResetDeletesCount(t *testing.T) {
	ctx := context.Background()
	mock := newMockLoginRedis()
	l := newRedisLoginRateLimiter(zap.NewNop(), mock, time.Minute, 1)

	l.Fail(ctx, "ana@example.com")
	l.Reset(ctx, " Ana@example.com")
	if len(mock.deleted) != 1 || mock.deleted[0] != "login:fail:ana@example.com" {
		t.Fatalf("unexpected delete, got %+v", mock.deleted)
	}
	if !l.Allow(ctx, "ana@example.com") {
		t.Fatalf("expected allow after reset")
	}
}

func TestRedisLoginRateLimiter_FailsOpen(t *testing.T) {
	ctx := context.Background()
	mock := newMockLoginRedis()
	mock.err = errors.New("redis down")
	l := newRedisLoginRateLimiter(zap.NewNop(), mock, time.Minute, 1)

	l.Fail(ctx, "ana@example.com")
	if !l.Allow(ctx, "ana@example.com") {
		t.Fatalf("expected fail-open on redis errors")
	}
	if l.Allow(ctx, "  ") {
		t.Fatalf("expected blank email refused")
	}
}

func TestRedisLoginRateLimiter_SettingsFallBack(t *testing.T) {
	l := newRedisLoginRateLimiter(zap.NewNop(), newMockLoginRedis(), 0, 0)
	if l.window != time.Minute || l.max != 1 {
		t.Fatalf("unexpected fallbacks: %v %d", l.window, l.max)
	}
	if NewRedisLoginRateLimiter(zap.NewNop(), nil, time.Minute, 3) != nil {
		t.Fatalf("expected nil limiter without a client")
	}
}
