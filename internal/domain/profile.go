package domain

import "time"

// Fallback values shown for, and persisted in place of, empty profile fields.
const (
	PlaceholderDisplayName = "Add User"
	PlaceholderPhoneNumber = "Add Phone Number"
	PlaceholderBirthdate   = "Add Birthdate"
)

// UserProfile is the profile record keyed by the identity id.
// Phone number and birthdate are free text.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Birthdate   string    `json:"birthdate,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileFields is a partial profile for merge-writes. Nil fields keep their
// stored value.
type ProfileFields struct {
	DisplayName *string
	PhoneNumber *string
	Birthdate   *string
	AvatarURL   *string
}

func (f ProfileFields) Empty() bool {
	return f.DisplayName == nil && f.PhoneNumber == nil && f.Birthdate == nil && f.AvatarURL == nil
}

// Fields returns the stored fields of the profile as a merge-write payload.
// Empty fields stay nil.
func (p UserProfile) Fields() ProfileFields {
	return ProfileFields{
		DisplayName: nonEmpty(p.DisplayName),
		PhoneNumber: nonEmpty(p.PhoneNumber),
		Birthdate:   nonEmpty(p.Birthdate),
		AvatarURL:   nonEmpty(p.AvatarURL),
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
