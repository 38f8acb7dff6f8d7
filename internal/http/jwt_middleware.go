package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weatherguard/internal/domain"
	"weatherguard/internal/service"
)

const authClaimsKey = "auth_claims"

// JWTAuthMiddleware validates the bearer access token, checks that its
// identity still exists and stores the claims on the context.
func JWTAuthMiddleware(logger *zap.Logger, jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := jwtSvc.Authorize(c.Request.Context(), token)
		if err != nil {
			writeSessionError(c, logger, err)
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims returns the claims stored by JWTAuthMiddleware.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

// writeSessionError answers a rejected token with 401. Anything else is a
// failed lookup and the caller may retry.
func writeSessionError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrSessionEnded):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
	case errors.Is(err, service.ErrJWTInvalid), errors.Is(err, service.ErrJWTExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	default:
		logger.Error("verify session", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not verify session"})
	}
}

func sessionFromContext(c *gin.Context) (domain.Session, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		return domain.Session{}, false
	}
	session := claims.Session()
	return session, session.Authenticated()
}
