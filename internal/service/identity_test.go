package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"weatherguard/internal/domain"
	"weatherguard/internal/repository"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	deleteErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.usersByID, id)
	delete(m.usersByEmail, user.Email)
	return nil
}

func TestPasswordIdentityProvider_RegisterAndVerify(t *testing.T) {
	repo := newMockUserRepo()
	p := NewPasswordIdentityProvider(zap.NewNop(), repo)
	ctx := context.Background()

	user, err := p.Register(ctx, RegisterInput{Email: " Ana@Example.com ", Password: "secret123", DisplayName: " Ana "})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Email != "ana@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret123" {
		t.Fatalf("expected hashed password")
	}

	got, err := p.VerifyCredentials(ctx, "ANA@example.com", "secret123")
	if err != nil || got.ID != user.ID {
		t.Fatalf("verify: %+v, %v", got, err)
	}
	if _, err := p.VerifyCredentials(ctx, "ana@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.VerifyCredentials(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestPasswordIdentityProvider_RegisterValidation(t *testing.T) {
	p := NewPasswordIdentityProvider(zap.NewNop(), newMockUserRepo())
	ctx := context.Background()

	if _, err := p.Register(ctx, RegisterInput{Email: "not-an-email", Password: "secret123"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := p.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := p.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := p.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123"}); !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestPasswordIdentityProvider_DeleteIdentity(t *testing.T) {
	repo := newMockUserRepo()
	p := NewPasswordIdentityProvider(zap.NewNop(), repo)
	ctx := context.Background()

	user, err := p.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ok, err := p.IdentityExists(ctx, user.ID); !ok || err != nil {
		t.Fatalf("expected identity to exist, got %v, %v", ok, err)
	}
	if err := p.DeleteIdentity(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, err := p.IdentityExists(ctx, user.ID); ok || err != nil {
		t.Fatalf("expected deleted identity to be absent, got %v, %v", ok, err)
	}
	if err := p.DeleteIdentity(ctx, user.ID); !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
	if _, err := p.VerifyCredentials(ctx, "ana@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("deleted identity must not verify, got %v", err)
	}
}
