package auth

import (
	"context"
	"time"

	"blogapi/internal/domain"
	jwtsvc "blogapi/internal/pkg/jwt"
)

// UserRepositoryInterface is the user storage the auth service needs.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepositoryInterface stores refresh tokens.
type RefreshTokenRepositoryInterface interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetActiveByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeByUser(ctx context.Context, userID string) (int64, error)
	DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type tokenSigner interface {
	GenerateToken(claims jwtsvc.Claims) (string, time.Time, error)
	ValidateToken(token string) (*jwtsvc.Claims, error)
}
