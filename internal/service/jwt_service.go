package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"weatherguard/internal/domain"
)

const (
	tokenIssuer  = "weatherguard"
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	// ErrSessionEnded means the token is well formed but its identity is gone.
	ErrSessionEnded = errors.New("session ended")
)

// IdentityChecker reports whether an identity still exists.
type IdentityChecker interface {
	IdentityExists(ctx context.Context, userID string) (bool, error)
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Store defaults to an in-memory store.
	Store RefreshTokenStore
	// Identities, when set, is asked on every refresh and every authorized
	// request whether the token's owner still exists.
	Identities IdentityChecker
}

// JWTService issues the token pair behind a session and ends sessions on
// logout or account deletion.
type JWTService struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshTokenStore
	identities IdentityChecker
	parser     *jwt.Parser
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Session rebuilds the screen session from validated access claims.
func (c Claims) Session() domain.Session {
	return domain.Session{UserID: c.UserID, Email: c.Email}
}

func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTokenTTL
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryRefreshTokenStore()
	}
	return &JWTService{
		key:        []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		store:      cfg.Store,
		identities: cfg.Identities,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Issue opens a session for user. The refresh token id is recorded so the
// session can be rotated or ended later.
func (s *JWTService) Issue(ctx context.Context, user domain.User) (TokenPair, error) {
	if len(s.key) == 0 {
		return TokenPair{}, ErrJWTInvalid
	}
	now := time.Now().UTC()
	access, err := s.sign(user, tokenAccess, "", now, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	jti := uuid.NewString()
	refresh, err := s.sign(user, tokenRefresh, jti, now, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.Store(ctx, jti, user.ID, s.refreshTTL); err != nil {
		return TokenPair{}, fmt.Errorf("record refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Refresh trades a live refresh token for a new pair. The presented token is
// spent either way; a token whose identity was deleted ends with
// ErrSessionEnded.
func (s *JWTService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.verify(refreshToken, tokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	live, err := s.store.Exists(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("look up refresh token: %w", err)
	}
	if !live {
		return TokenPair{}, ErrJWTInvalid
	}
	if err := s.store.Revoke(ctx, claims.ID); err != nil {
		return TokenPair{}, fmt.Errorf("spend refresh token: %w", err)
	}
	if err := s.checkIdentity(ctx, claims.UserID); err != nil {
		return TokenPair{}, err
	}
	return s.Issue(ctx, domain.User{ID: claims.UserID, Email: claims.Email})
}

// RevokeRefresh ends the session behind one refresh token.
func (s *JWTService) RevokeRefresh(ctx context.Context, refreshToken string) error {
	claims, err := s.verify(refreshToken, tokenRefresh)
	if err != nil {
		return err
	}
	return s.store.Revoke(ctx, claims.ID)
}

// EndSessions revokes every refresh token issued to userID.
func (s *JWTService) EndSessions(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrJWTInvalid
	}
	return s.store.RevokeUser(ctx, userID)
}

// ParseAccessToken checks signature, issuer, expiry and token type only.
func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	return s.verify(accessToken, tokenAccess)
}

// Authorize is ParseAccessToken plus a check that the identity still exists.
func (s *JWTService) Authorize(ctx context.Context, accessToken string) (Claims, error) {
	claims, err := s.verify(accessToken, tokenAccess)
	if err != nil {
		return Claims{}, err
	}
	if err := s.checkIdentity(ctx, claims.UserID); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (s *JWTService) checkIdentity(ctx context.Context, userID string) error {
	if s.identities == nil {
		return nil
	}
	exists, err := s.identities.IdentityExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("check identity: %w", err)
	}
	if !exists {
		return ErrSessionEnded
	}
	return nil
}

func (s *JWTService) sign(user domain.User, kind, jti string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// verify parses raw and insists on the given token kind. Refresh tokens must
// also carry an id.
func (s *JWTService) verify(raw, kind string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if len(s.key) == 0 || raw == "" {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrJWTExpired
	case err != nil:
		return Claims{}, ErrJWTInvalid
	}

	if claims.TokenType != kind || claims.UserID == "" || claims.Subject != claims.UserID {
		return Claims{}, ErrJWTInvalid
	}
	if kind == tokenRefresh && claims.ID == "" {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}
