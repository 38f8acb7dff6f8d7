package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weatherguard/internal/repository"
	"weatherguard/internal/service"
)

// AuthHandler serves the login screen and token endpoints.
type AuthHandler struct {
	logger    *zap.Logger
	gate      *service.SessionGate
	registrar service.Registrar
	jwtServ   *service.JWTService
}

func NewAuthHandler(logger *zap.Logger, gate *service.SessionGate, registrar service.Registrar, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		gate:      gate,
		registrar: registrar,
		jwtServ:   jwtServ,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.registrar == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration not configured"})
		return
	}

	user, err := h.registrar.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.gate.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": res.Session,
		"tokens":  res.Tokens,
		"notice":  res.Outcome.Notice,
		"route":   res.Outcome.Route,
	})
}

func (h *AuthHandler) writeLoginError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrRateLimited) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}
	notice, ok := service.NoticeFor(err)
	if !ok {
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": notice.Message, "notice": notice})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": notice.Message, "notice": notice})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": notice.Message, "notice": notice})
	}
}

// RefreshToken handles POST /auth/refresh.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	tokens, err := h.jwtServ.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeSessionError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}
