package service

import (
	"context"
	"sync"
	"time"
)

// LoginRateLimiter locks an email out after too many failed logins inside a
// window. Keys are emails; implementations normalise them with
// loginAttemptKey so " Ana@Example.com " and "ana@example.com" share a count.
type LoginRateLimiter interface {
	// Allow reports whether another attempt may reach the identity provider.
	Allow(ctx context.Context, email string) bool
	// Fail records a rejected credential.
	Fail(ctx context.Context, email string)
	// Reset clears the count after a successful login.
	Reset(ctx context.Context, email string)
}

func loginAttemptKey(email string) string {
	return normalizeEmail(email)
}

type loginRateLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	failures map[string][]time.Time
}

// NewLoginRateLimiter builds an in-memory sliding window limiter.
func NewLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginRateLimiter{
		window:   window,
		max:      max,
		failures: make(map[string][]time.Time),
	}
}

func (l *loginRateLimiter) Allow(_ context.Context, email string) bool {
	key := loginAttemptKey(email)
	if key == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(key)) < l.max
}

func (l *loginRateLimiter) Fail(_ context.Context, email string) {
	key := loginAttemptKey(email)
	if key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key] = append(l.recent(key), time.Now().UTC())
}

func (l *loginRateLimiter) Reset(_ context.Context, email string) {
	l.mu.Lock()
	delete(l.failures, loginAttemptKey(email))
	l.mu.Unlock()
}

// recent drops failures older than the window. Callers hold mu.
func (l *loginRateLimiter) recent(key string) []time.Time {
	cutoff := time.Now().UTC().Add(-l.window)
	kept := l.failures[key][:0]
	for _, ts := range l.failures[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = kept
	return kept
}
