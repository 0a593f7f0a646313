package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/middleware"
	"blogapi/internal/modules/auth"
	jwtsvc "blogapi/internal/pkg/jwt"
	"blogapi/internal/pkg/logger"
	"blogapi/internal/pkg/password"
	"blogapi/internal/repository"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	appLog := logger.New(level, os.Stdout)
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.Fatal("server stopped", logger.Error(err))
	}
}

func run(ctx context.Context, cfg *config.AuthRuntimeConfig, appLog logger.Logger) error {
	db, err := database.Connect(cfg.DatabaseURL, appLog)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	issuer := auth.NewTokenIssuer(
		jwtsvc.New(cfg.JWTSecret, cfg.AccessTokenTTL.Std()),
		jwtsvc.New(cfg.JWTRefreshSecret, cfg.RefreshTokenTTL.Std()),
		refreshTokenRepo,
	)
	authService := auth.NewService(userRepo, refreshTokenRepo, issuer, password.New(cfg.BcryptCost), appLog)
	authHandler := auth.NewHandler(authService)

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.ErrorLogger(appLog))
	r.Use(middleware.RequestLogger(appLog))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins...))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	authHandler.RegisterRoutes(api, middleware.JWTAuth(issuer))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", logger.String("addr", cfg.HTTPAddr), logger.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
