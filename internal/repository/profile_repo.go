package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"weatherguard/internal/domain"
)

// ProfileRepository is the record store for user profiles. Get returns
// pgx.ErrNoRows when no record exists for the identity.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (domain.UserProfile, error)
	MergeWrite(ctx context.Context, userID string, fields domain.ProfileFields) error
	Delete(ctx context.Context, userID string) error
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	const query = `
		SELECT user_id, display_name, phone_number, birthdate, avatar_url, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`
	var p domain.UserProfile
	var displayName, phone, birthdate, avatarURL *string
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&displayName,
		&phone,
		&birthdate,
		&avatarURL,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.UserProfile{}, err
	}
	p.DisplayName = deref(displayName)
	p.PhoneNumber = deref(phone)
	p.Birthdate = deref(birthdate)
	p.AvatarURL = deref(avatarURL)
	return p, nil
}

// MergeWrite upserts only the non-nil fields; the record is created on the
// first write.
func (r *PgProfileRepository) MergeWrite(ctx context.Context, userID string, fields domain.ProfileFields) error {
	const query = `
		INSERT INTO user_profiles (user_id, display_name, phone_number, birthdate, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = COALESCE(EXCLUDED.display_name, user_profiles.display_name),
			phone_number = COALESCE(EXCLUDED.phone_number, user_profiles.phone_number),
			birthdate    = COALESCE(EXCLUDED.birthdate, user_profiles.birthdate),
			avatar_url   = COALESCE(EXCLUDED.avatar_url, user_profiles.avatar_url),
			updated_at   = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		userID,
		fields.DisplayName,
		fields.PhoneNumber,
		fields.Birthdate,
		fields.AvatarURL,
		time.Now().UTC(),
	)
	return err
}

// Delete removes the record; a missing record is not an error.
func (r *PgProfileRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
