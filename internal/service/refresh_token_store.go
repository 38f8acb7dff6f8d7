package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRefreshTokenTTL = 30 * 24 * time.Hour

// RefreshTokenStore remembers which refresh tokens are still live. Tokens are
// indexed by owner as well, so account deletion can end every open session.
type RefreshTokenStore interface {
	Store(ctx context.Context, jti, userID string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
	RevokeUser(ctx context.Context, userID string) error
}

type liveToken struct {
	userID  string
	expires time.Time
}

type memoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]liveToken
}

func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{tokens: make(map[string]liveToken)}
}

func (s *memoryRefreshTokenStore) Store(_ context.Context, jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshTokenTTL
	}
	s.mu.Lock()
	s.tokens[jti] = liveToken{userID: userID, expires: time.Now().UTC().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *memoryRefreshTokenStore) Exists(_ context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[jti]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(tok.expires) {
		delete(s.tokens, jti)
		return false, nil
	}
	return true, nil
}

func (s *memoryRefreshTokenStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	delete(s.tokens, strings.TrimSpace(jti))
	s.mu.Unlock()
	return nil
}

func (s *memoryRefreshTokenStore) RevokeUser(_ context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, tok := range s.tokens {
		if tok.userID == userID {
			delete(s.tokens, jti)
		}
	}
	return nil
}

// redisTokenClient is the slice of *redis.Client the store needs.
type redisTokenClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// redisRefreshTokenStore keeps one key per token under auth:refresh: and one
// set per user under auth:sessions: listing that user's token ids.
type redisRefreshTokenStore struct {
	client      redisTokenClient
	tokenPrefix string
	userPrefix  string
	timeout     time.Duration
}

func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return newRedisRefreshTokenStore(client)
}

func newRedisRefreshTokenStore(client redisTokenClient) *redisRefreshTokenStore {
	return &redisRefreshTokenStore{
		client:      client,
		tokenPrefix: "auth:refresh:",
		userPrefix:  "auth:sessions:",
		timeout:     500 * time.Millisecond,
	}
}

func (s *redisRefreshTokenStore) Store(ctx context.Context, jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshTokenTTL
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.tokenPrefix+jti, userID, ttl).Err(); err != nil {
		return err
	}
	if userID == "" {
		return nil
	}
	// The index lives as long as the newest token in it.
	userKey := s.userPrefix + userID
	if err := s.client.SAdd(ctx, userKey, jti).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, userKey, ttl).Err()
}

func (s *redisRefreshTokenStore) Exists(ctx context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.client.Exists(ctx, s.tokenPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisRefreshTokenStore) Revoke(ctx context.Context, jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Del(ctx, s.tokenPrefix+jti).Err()
}

func (s *redisRefreshTokenStore) RevokeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userKey := s.userPrefix + userID
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, jti := range ids {
		keys = append(keys, s.tokenPrefix+jti)
	}
	keys = append(keys, userKey)
	return s.client.Del(ctx, keys...).Err()
}
