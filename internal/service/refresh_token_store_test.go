package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeTokenRedis keeps strings and sets in maps and records expirations.
type fakeTokenRedis struct {
	values map[string]string
	sets   map[string]map[string]bool
	ttls   map[string]time.Duration
	failOn string
}

func newFakeTokenRedis() *fakeTokenRedis {
	return &fakeTokenRedis{
		values: make(map[string]string),
		sets:   make(map[string]map[string]bool),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeTokenRedis) fail(op string) error {
	if f.failOn == op {
		return errors.New("redis " + op + " failed")
	}
	return nil
}

func (f *fakeTokenRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if err := f.fail("set"); err != nil {
		cmd.SetErr(err)
		return cmd
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeTokenRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if err := f.fail("exists"); err != nil {
		cmd.SetErr(err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeTokenRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if err := f.fail("del"); err != nil {
		cmd.SetErr(err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
		if _, ok := f.sets[k]; ok {
			delete(f.sets, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeTokenRedis) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if err := f.fail("sadd"); err != nil {
		cmd.SetErr(err)
		return cmd
	}
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]bool)
	}
	for _, m := range members {
		f.sets[key][m.(string)] = true
	}
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeTokenRedis) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	if err := f.fail("smembers"); err != nil {
		cmd.SetErr(err)
		return cmd
	}
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	cmd.SetVal(out)
	return cmd
}

func (f *fakeTokenRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	f.ttls[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func TestMemoryRefreshTokenStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()

	if err := store.Store(ctx, "jti-1", "u1", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	if ok, _ := store.Exists(ctx, " jti-1 "); !ok {
		t.Fatalf("expected stored token to be live")
	}
	if err := store.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := store.Exists(ctx, "jti-1"); ok {
		t.Fatalf("expected revoked token to be gone")
	}
}

func TestMemoryRefreshTokenStore_ExpiredTokenIsGone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()
	_ = store.Store(ctx, "jti-1", "u1", 20*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	if ok, _ := store.Exists(ctx, "jti-1"); ok {
		t.Fatalf("expected expired token to be gone")
	}
}

func TestMemoryRefreshTokenStore_ZeroTTLUsesDefault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore().(*memoryRefreshTokenStore)
	before := time.Now().UTC()
	_ = store.Store(ctx, "jti-1", "u1", 0)

	tok := store.tokens["jti-1"]
	if tok.expires.Before(before.Add(defaultRefreshTokenTTL)) {
		t.Fatalf("expected default lifetime, expires at %v", tok.expires)
	}
	if ok, _ := store.Exists(ctx, "jti-1"); !ok {
		t.Fatalf("expected token stored with zero ttl to be live")
	}
}

func TestMemoryRefreshTokenStore_RevokeUserEndsOnlyThatUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()
	_ = store.Store(ctx, "phone", "u1", time.Hour)
	_ = store.Store(ctx, "tablet", "u1", time.Hour)
	_ = store.Store(ctx, "other", "u2", time.Hour)

	if err := store.RevokeUser(ctx, "u1"); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	for _, jti := range []string{"phone", "tablet"} {
		if ok, _ := store.Exists(ctx, jti); ok {
			t.Fatalf("expected %s revoked", jti)
		}
	}
	if ok, _ := store.Exists(ctx, "other"); !ok {
		t.Fatalf("expected other user's token untouched")
	}
}

func TestRedisRefreshTokenStore_StoreIndexesByUser(t *testing.T) {
	ctx := context.Background()
	fake := newFakeTokenRedis()
	store := newRedisRefreshTokenStore(fake)

	if err := store.Store(ctx, " jti-1 ", "u1", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	if fake.values["auth:refresh:jti-1"] != "u1" {
		t.Fatalf("expected token key, got %v", fake.values)
	}
	if !fake.sets["auth:sessions:u1"]["jti-1"] {
		t.Fatalf("expected token indexed under its user, got %v", fake.sets)
	}
	if fake.ttls["auth:refresh:jti-1"] != time.Hour || fake.ttls["auth:sessions:u1"] != time.Hour {
		t.Fatalf("unexpected ttls: %v", fake.ttls)
	}

	ok, err := store.Exists(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected live token, got %v, %v", ok, err)
	}
}

func TestRedisRefreshTokenStore_ZeroTTLUsesDefault(t *testing.T) {
	fake := newFakeTokenRedis()
	store := newRedisRefreshTokenStore(fake)

	if err := store.Store(context.Background(), "jti-1", "u1", 0); err != nil {
		t.Fatalf("store: %v", err)
	}
	if fake.ttls["auth:refresh:jti-1"] != defaultRefreshTokenTTL {
		t.Fatalf("expected default ttl, got %v", fake.ttls["auth:refresh:jti-1"])
	}
	if fake.ttls["auth:sessions:u1"] != defaultRefreshTokenTTL {
		t.Fatalf("expected index to share the default ttl, got %v", fake.ttls["auth:sessions:u1"])
	}
}

func TestRedisRefreshTokenStore_BlankIDIsIgnored(t *testing.T) {
	fake := newFakeTokenRedis()
	store := newRedisRefreshTokenStore(fake)

	if err := store.Store(context.Background(), "  ", "u1", time.Hour); err != nil {
		t.Fatalf("store: %v", err)
	}
	if len(fake.values) != 0 || len(fake.sets) != 0 {
		t.Fatalf("expected nothing written, got %v %v", fake.values, fake.sets)
	}
	if ok, err := store.Exists(context.Background(), ""); ok || err != nil {
		t.Fatalf("expected blank id to be absent, got %v, %v", ok, err)
	}
}

func TestRedisRefreshTokenStore_RevokeUser(t *testing.T) {
	ctx := context.Background()
	fake := newFakeTokenRedis()
	store := newRedisRefreshTokenStore(fake)
	_ = store.Store(ctx, "phone", "u1", time.Hour)
	_ = store.Store(ctx, "tablet", "u1", time.Hour)
	_ = store.Store(ctx, "other", "u2", time.Hour)

	if err := store.RevokeUser(ctx, "u1"); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	if _, ok := fake.values["auth:refresh:phone"]; ok {
		t.Fatalf("expected phone token deleted")
	}
	if _, ok := fake.values["auth:refresh:tablet"]; ok {
		t.Fatalf("expected tablet token deleted")
	}
	if _, ok := fake.sets["auth:sessions:u1"]; ok {
		t.Fatalf("expected user index deleted")
	}
	if fake.values["auth:refresh:other"] != "u2" {
		t.Fatalf("expected other user's token untouched")
	}
}

func TestRedisRefreshTokenStore_ErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	fake := newFakeTokenRedis()
	fake.failOn = "exists"
	if _, err := newRedisRefreshTokenStore(fake).Exists(ctx, "jti-1"); err == nil {
		t.Fatalf("expected exists error")
	}

	fake = newFakeTokenRedis()
	fake.failOn = "sadd"
	if err := newRedisRefreshTokenStore(fake).Store(ctx, "jti-1", "u1", time.Hour); err == nil {
		t.Fatalf("expected index error")
	}

	fake = newFakeTokenRedis()
	fake.failOn = "smembers"
	if err := newRedisRefreshTokenStore(fake).RevokeUser(ctx, "u1"); err == nil {
		t.Fatalf("expected revoke user error")
	}
}
