package main

import (
	"context"
	"log"
	"os"
	"time"

	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/pkg/logger"
	"blogapi/internal/repository"
)

// auth_cleanup removes expired refresh tokens and revoked ones older than
// REFRESH_TOKEN_RETENTION. Meant to run from cron.
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
	appLog := logger.New(level, os.Stdout).With(logger.String("job", "auth_cleanup"))
	defer appLog.Sync()

	db, err := database.Connect(cfg.DatabaseURL, appLog)
	if err != nil {
		appLog.Fatal("db connect failed", logger.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		appLog.Fatal("migrate failed", logger.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := repository.NewRefreshTokenRepository(db).DeleteStale(ctx, time.Now().UTC(), cfg.RefreshTokenRetention.Std())
	if err != nil {
		appLog.Fatal("cleanup refresh_tokens failed", logger.Error(err))
	}

	appLog.Info("auth cleanup completed",
		logger.Int64("refresh_tokens", n),
		logger.Duration("took", time.Since(start)),
	)
}
