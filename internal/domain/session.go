package domain

// Session is the authenticated context handed to every screen.
// RefreshToken is only known to the client that logged in; it is empty when
// the session was rebuilt from an access token.
type Session struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	RefreshToken string `json:"-"`
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}
