package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"weatherguard/internal/cache"
	"weatherguard/internal/domain"
)

const (
	defaultMenuUsername = "Username"
	defaultMenuImage    = "https://via.placeholder.com/80"
)

// Menu routes and the screens they lead to.
const (
	RouteHome     = "home"
	RouteSettings = "settings"
	RouteLogout   = "logout"

	ScreenHomepage = "homepage"
	ScreenSettings = "settings"
	ScreenOpening  = "opening"
)

var menuRoutes = map[string]string{
	RouteHome:     ScreenHomepage,
	RouteSettings: ScreenSettings,
	RouteLogout:   ScreenOpening,
}

type MenuItem struct {
	Route string `json:"route"`
	Label string `json:"label"`
}

// MenuView is the side menu as painted on focus.
type MenuView struct {
	Username     string     `json:"username"`
	ProfileImage string     `json:"profile_image"`
	Items        []MenuItem `json:"items"`
}

// SessionRevoker ends sessions held in the token store: one on logout, all
// of a user's on account deletion.
type SessionRevoker interface {
	RevokeRefresh(ctx context.Context, refreshToken string) error
	EndSessions(ctx context.Context, userID string) error
}

// NavigationShell is the side menu of the authenticated area.
type NavigationShell struct {
	logger  *zap.Logger
	session domain.Session
	display cache.DisplayCache
	revoker SessionRevoker
}

func NewNavigationShell(logger *zap.Logger, session domain.Session, display cache.DisplayCache, revoker SessionRevoker) *NavigationShell {
	return &NavigationShell{
		logger:  logger,
		session: session,
		display: display,
		revoker: revoker,
	}
}

// Focus re-reads the display cache. It is called every time the menu
// regains focus.
func (n *NavigationShell) Focus(ctx context.Context) MenuView {
	return MenuView{
		Username:     n.cached(ctx, cache.KeyUsername, defaultMenuUsername),
		ProfileImage: n.cached(ctx, cache.KeyProfileImage, defaultMenuImage),
		Items: []MenuItem{
			{Route: RouteHome, Label: "Home"},
			{Route: RouteSettings, Label: "Settings"},
			{Route: RouteLogout, Label: "Logout"},
		},
	}
}

// Navigate resolves a menu route to its screen. Logout revokes the refresh
// token first; a failed revocation is logged and does not block navigation.
func (n *NavigationShell) Navigate(ctx context.Context, route string) (string, error) {
	route = strings.ToLower(strings.TrimSpace(route))
	screen, ok := menuRoutes[route]
	if !ok {
		return "", ErrUnknownRoute
	}
	if route == RouteLogout {
		n.logout(ctx)
	}
	return screen, nil
}

func (n *NavigationShell) logout(ctx context.Context) {
	if n.revoker == nil || n.session.RefreshToken == "" {
		return
	}
	if err := n.revoker.RevokeRefresh(ctx, n.session.RefreshToken); err != nil {
		n.logger.Warn("revoke refresh token on logout", zap.String("user_id", n.session.UserID), zap.Error(err))
		return
	}
	n.logger.Info("logged out", zap.String("user_id", n.session.UserID))
}

func (n *NavigationShell) cached(ctx context.Context, key, fallback string) string {
	if n.display == nil {
		return fallback
	}
	v, ok, err := n.display.Get(ctx, key)
	if err != nil {
		n.logger.Warn("read display cache", zap.String("key", key), zap.Error(err))
		return fallback
	}
	if !ok || v == "" {
		return fallback
	}
	return v
}
