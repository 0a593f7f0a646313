package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"blogapi/internal/pkg/validator"
)

const (
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTRefreshSecret = "change-me-refresh-secret"
)

type AuthRuntimeConfig struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080" validate:"required"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"blog.db" validate:"required"`

	JWTSecret        string   `env:"JWT_SECRET" envDefault:"change-me-jwt-secret" validate:"required"`
	JWTRefreshSecret string   `env:"JWT_REFRESH_SECRET" envDefault:"change-me-refresh-secret" validate:"required"`
	AccessTokenTTL   Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m" validate:"gt=0"`
	RefreshTokenTTL  Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"7d" validate:"gt=0"`

	// RefreshTokenRetention is how long revoked rows are kept before auth_cleanup removes them.
	RefreshTokenRetention Duration `env:"REFRESH_TOKEN_RETENTION" envDefault:"30d" validate:"gte=0"`

	BcryptCost         int      `env:"BCRYPT_COST" envDefault:"10" validate:"min=4,max=31"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// LoadDotEnv loads variables from the given files (".env" by default) without
// overriding ones already set. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	cfg := &AuthRuntimeConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.JWTRefreshSecret = strings.TrimSpace(cfg.JWTRefreshSecret)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *AuthRuntimeConfig) error {
	if err := validator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		return fmt.Errorf("JWT_REFRESH_SECRET must differ from JWT_SECRET")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.JWTRefreshSecret, defaultJWTRefreshSecret) {
			return fmt.Errorf("in prod/release JWT_REFRESH_SECRET must be set and not default")
		}
	}

	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
