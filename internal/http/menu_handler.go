package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weatherguard/internal/cache"
	"weatherguard/internal/domain"
	"weatherguard/internal/service"
)

// MenuHandler serves the side menu of the authenticated area.
type MenuHandler struct {
	logger  *zap.Logger
	display cache.Provider
	revoker service.SessionRevoker
}

func NewMenuHandler(logger *zap.Logger, display cache.Provider, revoker service.SessionRevoker) *MenuHandler {
	return &MenuHandler{
		logger:  logger,
		display: display,
		revoker: revoker,
	}
}

func (h *MenuHandler) shell(session domain.Session) *service.NavigationShell {
	var display cache.DisplayCache
	if h.display != nil && session.Authenticated() {
		display = h.display.ForUser(session.UserID)
	}
	return service.NewNavigationShell(h.logger, session, display, h.revoker)
}

// GetMenu handles GET /menu.
func (h *MenuHandler) GetMenu(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": h.shell(session).Focus(c.Request.Context())})
}

// Navigate handles POST /menu/navigate.
func (h *MenuHandler) Navigate(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req struct {
		Route        string `json:"route" binding:"required"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid navigate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	session.RefreshToken = req.RefreshToken

	screen, err := h.shell(session).Navigate(c.Request.Context(), req.Route)
	if err != nil {
		if errors.Is(err, service.ErrUnknownRoute) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown route"})
			return
		}
		h.logger.Error("navigate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not navigate"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"screen": screen})
}

// Logout handles POST /auth/logout. It only needs the refresh token.
func (h *MenuHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	screen, err := h.shell(domain.Session{RefreshToken: req.RefreshToken}).Navigate(c.Request.Context(), service.RouteLogout)
	if err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"screen": screen})
}
