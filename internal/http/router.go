package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"weatherguard/internal/service"
)

// RouterConfig holds what the router needs besides the handlers.
type RouterConfig struct {
	JWT     *service.JWTService
	BlobDir string
}

// NewRouter sets up the gin engine with middlewares and routes.
func NewRouter(
	logger *zap.Logger,
	cfg RouterConfig,
	authH *AuthHandler,
	accountH *AccountHandler,
	menuH *MenuHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	if cfg.BlobDir != "" {
		r.Static("/blobs", cfg.BlobDir)
	}

	auth := r.Group("/auth", jsonContentTypeMiddleware())
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)
	auth.POST("/logout", menuH.Logout)

	protected := r.Group("", jsonContentTypeMiddleware(), JWTAuthMiddleware(logger, cfg.JWT))
	protected.GET("/account/profile", accountH.GetProfile)
	protected.PUT("/account/profile", accountH.UpdateProfile)
	protected.POST("/account/avatar", accountH.UploadAvatar)
	protected.DELETE("/account", accountH.DeleteAccount)
	protected.GET("/menu", menuH.GetMenu)
	protected.POST("/menu/navigate", menuH.Navigate)

	return r
}

// WithCORS wraps the engine so browser clients from the given origins can
// call the API.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)(h)
}

// zapLoggerMiddleware logs one line per request.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware forces Content-Type: application/json on API responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
