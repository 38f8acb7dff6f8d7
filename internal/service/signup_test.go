package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"weatherguard/internal/cache"
	"weatherguard/internal/domain"
	"weatherguard/internal/repository"
)

func newTestSignup(log *callLog) (*Signup, *mockProfileRepo, *cache.MemoryProvider, *mockMailer) {
	profiles := newMockProfileRepo(log)
	display := cache.NewMemoryProvider()
	mailer := &mockMailer{}
	identities := NewPasswordIdentityProvider(zap.NewNop(), newMockUserRepo())
	return NewSignup(zap.NewNop(), identities, profiles, display, mailer), profiles, display, mailer
}

func TestSignup_SeedsProfileAndMenu(t *testing.T) {
	ctx := context.Background()
	signup, profiles, display, mailer := newTestSignup(&callLog{})

	user, err := signup.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123", DisplayName: "  Ana  "})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := profiles.records[user.ID]; got.DisplayName != "Ana" || got.PhoneNumber != "" || got.AvatarURL != "" {
		t.Fatalf("expected only the display name seeded, got %+v", got)
	}
	if name, ok, _ := display.ForUser(user.ID).Get(ctx, cache.KeyUsername); !ok || name != "Ana" {
		t.Fatalf("expected menu username seeded, got %q", name)
	}
	if len(mailer.welcome) != 1 || mailer.welcome[0] != "ana@example.com|Ana" {
		t.Fatalf("expected welcome mail, got %v", mailer.welcome)
	}

	editor := NewProfileEditor(zap.NewNop(), domain.Session{UserID: user.ID}, ProfileEditorDeps{Profiles: profiles})
	if err := editor.LoadProfile(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if v := editor.View(); v.DisplayName != "Ana" || v.PhoneNumber != "Add Phone Number" {
		t.Fatalf("expected seeded name with placeholders, got %+v", v)
	}
}

func TestSignup_WithoutDisplayNameWritesNoRecord(t *testing.T) {
	ctx := context.Background()
	log := &callLog{}
	signup, profiles, display, _ := newTestSignup(log)

	user, err := signup.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123", DisplayName: "   "})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(profiles.writes) != 0 || len(log.calls) != 0 {
		t.Fatalf("expected no record write, got %v", log.calls)
	}
	if _, ok, _ := display.ForUser(user.ID).Get(ctx, cache.KeyUsername); ok {
		t.Fatalf("expected no menu username")
	}
}

func TestSignup_SeedFailuresDoNotFailRegistration(t *testing.T) {
	ctx := context.Background()
	signup, profiles, _, mailer := newTestSignup(&callLog{})
	profiles.writeErr = errors.New("record store unavailable")
	mailer.err = errors.New("smtp down")

	if _, err := signup.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123", DisplayName: "Ana"}); err != nil {
		t.Fatalf("expected registration to succeed, got %v", err)
	}
}

func TestSignup_IdentityErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	log := &callLog{}
	signup, profiles, _, mailer := newTestSignup(log)

	if _, err := signup.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "short", DisplayName: "Ana"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	_, _ = signup.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123"})
	if _, err := signup.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123", DisplayName: "Other"}); !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(profiles.writes) != 0 || len(mailer.welcome) != 1 {
		t.Fatalf("failed sign-ups must not seed anything, got writes=%d mails=%v", len(profiles.writes), mailer.welcome)
	}
}
