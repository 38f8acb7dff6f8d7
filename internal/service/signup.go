package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"weatherguard/internal/cache"
	"weatherguard/internal/domain"
	"weatherguard/internal/email"
	"weatherguard/internal/repository"
)

// Registrar creates identities.
type Registrar interface {
	Register(ctx context.Context, input RegisterInput) (domain.User, error)
}

// Signup creates an identity and gives the new account its first display
// name. The identity is the only required step: a failure to seed the
// profile, the menu cache or the welcome mail is logged and the account
// still exists.
type Signup struct {
	logger     *zap.Logger
	identities Registrar
	profiles   repository.ProfileRepository
	display    cache.Provider
	mailer     email.Sender
}

func NewSignup(logger *zap.Logger, identities Registrar, profiles repository.ProfileRepository, display cache.Provider, mailer email.Sender) *Signup {
	return &Signup{
		logger:     logger,
		identities: identities,
		profiles:   profiles,
		display:    display,
		mailer:     mailer,
	}
}

func (s *Signup) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.identities == nil {
		return domain.User{}, errors.New("signup not configured")
	}
	user, err := s.identities.Register(ctx, input)
	if err != nil {
		return domain.User{}, err
	}

	name := strings.TrimSpace(input.DisplayName)
	if name != "" {
		s.seedDisplayName(ctx, user.ID, name)
	}
	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Email, name); err != nil {
			s.logger.Warn("send welcome email", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

func (s *Signup) seedDisplayName(ctx context.Context, userID, name string) {
	if s.profiles != nil {
		if err := s.profiles.MergeWrite(ctx, userID, domain.ProfileFields{DisplayName: &name}); err != nil {
			s.logger.Warn("seed profile display name", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if s.display != nil {
		if err := s.display.ForUser(userID).Set(ctx, cache.KeyUsername, name); err != nil {
			s.logger.Warn("seed menu username", zap.String("user_id", userID), zap.Error(err))
		}
	}
}
