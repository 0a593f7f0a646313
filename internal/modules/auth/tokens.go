package auth

import (
	"context"
	"fmt"
	"time"

	"blogapi/internal/domain"
	jwtsvc "blogapi/internal/pkg/jwt"
)

// TokenIssuer mints access and refresh tokens. Each refresh token it issues is
// persisted as a new, non-revoked row.
type TokenIssuer struct {
	access        tokenSigner
	refresh       tokenSigner
	refreshTokens RefreshTokenRepositoryInterface
	now           func() time.Time
}

type IssuerOption func(*TokenIssuer)

// WithIssuerClock sets the time source for stored row timestamps. Pass the
// same clock the signers use so CreatedAt lines up with iat.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

func NewTokenIssuer(access, refresh tokenSigner, refreshTokens RefreshTokenRepositoryInterface, opts ...IssuerOption) *TokenIssuer {
	i := &TokenIssuer{
		access:        access,
		refresh:       refresh,
		refreshTokens: refreshTokens,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *TokenIssuer) IssueAccessToken(userID, email string) (string, time.Time, error) {
	return i.access.GenerateToken(jwtsvc.Claims{UserID: userID, Email: email})
}

func (i *TokenIssuer) IssueRefreshToken(ctx context.Context, userID string) (string, time.Time, error) {
	token, expiresAt, err := i.refresh.GenerateToken(jwtsvc.Claims{
		UserID:    userID,
		TokenType: jwtsvc.TokenTypeRefresh,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}

	row := &domain.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: i.now().UTC(),
	}
	if err := i.refreshTokens.Create(ctx, row); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh token: %w", err)
	}
	return token, expiresAt, nil
}

func (i *TokenIssuer) IssuePair(ctx context.Context, user *domain.User) (TokenPair, error) {
	access, accessExp, err := i.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := i.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// VerifyRefreshToken checks signature and expiry against the refresh secret and
// that the token was minted as a refresh token.
func (i *TokenIssuer) VerifyRefreshToken(token string) (*jwtsvc.Claims, error) {
	claims, err := i.refresh.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwtsvc.TokenTypeRefresh {
		return nil, jwtsvc.ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccessToken checks signature and expiry against the access secret.
func (i *TokenIssuer) VerifyAccessToken(token string) (*jwtsvc.Claims, error) {
	claims, err := i.access.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType == jwtsvc.TokenTypeRefresh {
		return nil, jwtsvc.ErrInvalidToken
	}
	return claims, nil
}
