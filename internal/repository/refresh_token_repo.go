package repository

import (
	"context"
	"time"

	"blogapi/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository provides DB access for refresh tokens.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error
}

// GetActiveByToken finds the non-revoked row holding exactly this token value.
// Expiry is not checked here.
func (r *RefreshTokenRepository) GetActiveByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND revoked = ?", token, false).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Revoke flips one row to revoked with a single conditional update.
// It reports true only for the call that performed the flip, so concurrent
// callers presenting the same token cannot both win.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevokeByUser revokes every still-active row owned by userID and returns how many changed.
func (r *RefreshTokenRepository) RevokeByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

// DeleteStale removes rows that expired before now, and revoked rows created before now-retention.
func (r *RefreshTokenRepository) DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now.UTC()).
		Or("revoked = ? AND created_at < ?", true, now.Add(-retention).UTC()).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}
