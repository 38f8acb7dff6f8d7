package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"weatherguard/internal/cache"
	"weatherguard/internal/config"
	"weatherguard/internal/db"
	"weatherguard/internal/email"
	apihttp "weatherguard/internal/http"
	"weatherguard/internal/repository"
	"weatherguard/internal/service"
	"weatherguard/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)

	blobs, err := storage.NewFileBlobStore(cfg.BlobDir, cfg.BlobPublicBaseURL)
	if err != nil {
		logger.Fatal("blob store", zap.Error(err))
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
		})
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		loginLimiter service.LoginRateLimiter
		tokenStore   service.RefreshTokenStore
		display      cache.Provider = cache.NewMemoryProvider()
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(logger, redisClient, cfg.LoginWindow(), cfg.LoginMaxAttempts)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			display = cache.NewRedisProvider(redisClient)
		}
		cancel()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewLoginRateLimiter(cfg.LoginWindow(), cfg.LoginMaxAttempts)
	}

	identity := service.NewPasswordIdentityProvider(logger, userRepo)
	jwtSvc := service.NewJWTService(service.JWTConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		Store:      tokenStore,
		Identities: identity,
	})
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	gate := service.NewSessionGate(logger, identity, jwtSvc, loginLimiter)
	editorDeps := service.ProfileEditorDeps{
		Profiles:         profileRepo,
		Identity:         identity,
		Blobs:            blobs,
		Images:           service.LocalFileSource{MaxBytes: cfg.MaxUploadBytes},
		Mailer:           emailSender,
		Sessions:         jwtSvc,
		DefaultAvatarURL: cfg.DefaultAvatarURL,
		AvatarSize:       cfg.AvatarSize,
		AvatarQuality:    cfg.AvatarQuality,
	}

	router := apihttp.NewRouter(logger,
		apihttp.RouterConfig{JWT: jwtSvc, BlobDir: blobs.Root()},
		apihttp.NewAuthHandler(logger, gate, service.NewSignup(logger, identity, profileRepo, display, emailSender), jwtSvc),
		apihttp.NewAccountHandler(logger, editorDeps, display, cfg.MaxUploadBytes),
		apihttp.NewMenuHandler(logger, display, jwtSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           apihttp.WithCORS(router, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
