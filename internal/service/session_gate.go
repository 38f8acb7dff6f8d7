package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"weatherguard/internal/domain"
)

// RouteMain is the authenticated area reached after login.
const RouteMain = "main"

var ErrRateLimited = errors.New("too many login attempts, try again later")

// LoginResult is what the login screen needs after a successful attempt.
type LoginResult struct {
	Session domain.Session `json:"session"`
	Tokens  TokenPair      `json:"tokens"`
	Outcome Outcome        `json:"outcome"`
}

// SessionGate authenticates credentials and opens a session.
type SessionGate struct {
	logger   *zap.Logger
	identity IdentityProvider
	tokens   *JWTService
	limiter  LoginRateLimiter
}

func NewSessionGate(logger *zap.Logger, identity IdentityProvider, tokens *JWTService, limiter LoginRateLimiter) *SessionGate {
	return &SessionGate{
		logger:   logger,
		identity: identity,
		tokens:   tokens,
		limiter:  limiter,
	}
}

// Authenticate verifies the credentials with exactly one provider call.
// Empty input fails with a *ValidationError before the provider is reached.
// Only rejected credentials count towards the lockout; a provider outage
// does not.
func (g *SessionGate) Authenticate(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return LoginResult{}, &ValidationError{Message: "Please enter both email and password."}
	}
	if g.identity == nil {
		return LoginResult{}, errors.New("session gate not configured")
	}
	if g.limiter != nil && !g.limiter.Allow(ctx, email) {
		g.logger.Info("login locked out", zap.String("email", loginAttemptKey(email)))
		return LoginResult{}, ErrRateLimited
	}

	user, err := g.identity.VerifyCredentials(ctx, email, password)
	if err != nil {
		if g.limiter != nil && errors.Is(err, ErrInvalidCredentials) {
			g.limiter.Fail(ctx, email)
		}
		g.logger.Info("login failed", zap.String("email", loginAttemptKey(email)), zap.Error(err))
		return LoginResult{}, remoteFailure("verify credentials", "Login Failed", err.Error(), err)
	}
	if g.limiter != nil {
		g.limiter.Reset(ctx, email)
	}

	result := LoginResult{
		Session: domain.Session{UserID: user.ID, Email: user.Email},
		Outcome: Outcome{
			Notice: Notice{Title: "Success", Message: fmt.Sprintf("Welcome back, %s!", user.Email)},
			Route:  RouteMain,
		},
	}
	if g.tokens != nil {
		pair, err := g.tokens.Issue(ctx, user)
		if err != nil {
			g.logger.Error("issue tokens", zap.String("user_id", user.ID), zap.Error(err))
			return LoginResult{}, err
		}
		result.Tokens = pair
		result.Session.RefreshToken = pair.RefreshToken
	}
	return result, nil
}
