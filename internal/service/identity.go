package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"weatherguard/internal/domain"
	"weatherguard/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrIdentityNotFound   = errors.New("identity not found")
)

// IdentityProvider verifies credentials and manages identities.
type IdentityProvider interface {
	VerifyCredentials(ctx context.Context, email, password string) (domain.User, error)
	DeleteIdentity(ctx context.Context, userID string) error
}

// PasswordIdentityProvider keeps identities in the users table with bcrypt
// password hashes.
type PasswordIdentityProvider struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewPasswordIdentityProvider(logger *zap.Logger, users repository.UserRepository) *PasswordIdentityProvider {
	return &PasswordIdentityProvider{
		logger: logger,
		users:  users,
	}
}

// RegisterInput is a sign-up request. DisplayName is not part of the
// identity; Signup uses it to seed the profile.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

func (p *PasswordIdentityProvider) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if p.users == nil {
		return domain.User{}, errors.New("identity provider not configured")
	}

	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return domain.User{}, ErrInvalidEmail
	}
	if len(input.Password) < 8 {
		return domain.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	p.logger.Info("identity registered", zap.String("user_id", user.ID))
	return user, nil
}

func (p *PasswordIdentityProvider) VerifyCredentials(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if p.users == nil {
		return domain.User{}, errors.New("identity provider not configured")
	}

	user, err := p.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (p *PasswordIdentityProvider) DeleteIdentity(ctx context.Context, userID string) error {
	if p.users == nil {
		return errors.New("identity provider not configured")
	}
	if err := p.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrIdentityNotFound
		}
		return err
	}
	p.logger.Info("identity deleted", zap.String("user_id", userID))
	return nil
}

// IdentityExists reports whether userID still has an identity.
func (p *PasswordIdentityProvider) IdentityExists(ctx context.Context, userID string) (bool, error) {
	if p.users == nil {
		return false, errors.New("identity provider not configured")
	}
	if _, err := p.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
