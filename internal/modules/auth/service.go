package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"blogapi/internal/domain"
	jwtsvc "blogapi/internal/pkg/jwt"
	"blogapi/internal/pkg/logger"
	"blogapi/internal/pkg/password"
	"blogapi/internal/repository"

	"gorm.io/gorm"
)

var errRefreshTokenRequired = &Error{Kind: KindValidation, Message: "Refresh token is required"}

// Service contains the register / login / refresh / logout business logic.
type Service struct {
	users         UserRepositoryInterface
	refreshTokens RefreshTokenRepositoryInterface
	tokens        *TokenIssuer
	hasher        PasswordHasher
	log           logger.Logger
	now           func() time.Time
}

type Option func(*Service)

// WithClock sets the time source for row expiry checks and cleanup. The
// issuer and the jwt signers keep their own clocks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	users UserRepositoryInterface,
	refreshTokens RefreshTokenRepositoryInterface,
	tokens *TokenIssuer,
	hasher PasswordHasher,
	log logger.Logger,
	opts ...Option,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		users:         users,
		refreshTokens: refreshTokens,
		tokens:        tokens,
		hasher:        hasher,
		log:           log.With(logger.String("component", "auth")),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. Emails are compared case-insensitively.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrValidation
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		s.log.Error("register: lookup email", logger.Error(err))
		return nil, unexpected(err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hashed, err := s.hasher.Hash(req.Password)
	if errors.Is(err, password.ErrTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		s.log.Error("register: hash password", logger.Error(err))
		return nil, unexpected(err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(req.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		s.log.Error("register: create user", logger.Error(err))
		return nil, unexpected(err)
	}

	user.PasswordHash = ""
	return user, nil
}

// Login checks credentials and opens a new session. Unknown email and wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*SessionResult, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, ErrValidation
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.log.Error("login: lookup user", logger.Error(err))
		return nil, unexpected(err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		s.log.Error("login: issue tokens", logger.String("user_id", user.ID), logger.Error(err))
		return nil, unexpected(err)
	}

	user.PasswordHash = ""
	return &SessionResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed by an atomic revoke before anything is issued, so it can succeed at
// most once; every failure surfaces as ErrInvalidRefreshToken.
func (s *Service) Refresh(ctx context.Context, presented string) (*SessionResult, error) {
	if presented == "" {
		return nil, errRefreshTokenRequired
	}

	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		if errors.Is(err, jwtsvc.ErrExpired) {
			s.revokeExpired(ctx, presented)
		}
		s.log.Debug("refresh: token rejected", logger.Error(err))
		return nil, ErrInvalidRefreshToken
	}

	row, err := s.refreshTokens.GetActiveByToken(ctx, presented)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error("refresh: lookup token", logger.Error(err))
		}
		return nil, ErrInvalidRefreshToken
	}
	log := s.log.With(logger.String("user_id", row.UserID), logger.String("token_id", row.ID))

	if row.UserID != claims.UserID {
		log.Warn("refresh: token owner mismatch", logger.String("claims_user_id", claims.UserID))
		if _, err := s.refreshTokens.Revoke(ctx, row.ID); err != nil {
			log.Error("refresh: revoke mismatched token", logger.Error(err))
		}
		return nil, ErrInvalidRefreshToken
	}

	if row.IsExpired(s.now()) {
		if _, err := s.refreshTokens.Revoke(ctx, row.ID); err != nil {
			log.Error("refresh: revoke expired token", logger.Error(err))
		}
		return nil, ErrInvalidRefreshToken
	}

	consumed, err := s.refreshTokens.Revoke(ctx, row.ID)
	if err != nil {
		log.Error("refresh: consume token", logger.Error(err))
		return nil, ErrInvalidRefreshToken
	}
	if !consumed {
		log.Warn("refresh: token already consumed")
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("refresh: owner not found")
		} else {
			log.Error("refresh: lookup owner", logger.Error(err))
		}
		return nil, ErrInvalidRefreshToken
	}

	tokens, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		log.Error("refresh: issue tokens", logger.Error(err))
		return nil, ErrInvalidRefreshToken
	}

	user.PasswordHash = ""
	return &SessionResult{User: user, Tokens: tokens}, nil
}

func (s *Service) revokeExpired(ctx context.Context, token string) {
	row, err := s.refreshTokens.GetActiveByToken(ctx, token)
	if err != nil {
		return
	}
	if _, err := s.refreshTokens.Revoke(ctx, row.ID); err != nil {
		s.log.Error("refresh: revoke expired token", logger.String("token_id", row.ID), logger.Error(err))
	}
}

// Logout revokes every refresh token owned by userID.
func (s *Service) Logout(ctx context.Context, userID string) error {
	n, err := s.refreshTokens.RevokeByUser(ctx, userID)
	if err != nil {
		s.log.Error("logout: revoke tokens", logger.String("user_id", userID), logger.Error(err))
		return unexpected(err)
	}
	s.log.Debug("logout", logger.String("user_id", userID), logger.Int64("revoked", n))
	return nil
}

// CleanupRefreshTokens deletes expired rows and revoked rows older than retention.
func (s *Service) CleanupRefreshTokens(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.refreshTokens.DeleteStale(ctx, s.now(), retention)
	if err != nil {
		return 0, unexpected(err)
	}
	return n, nil
}
