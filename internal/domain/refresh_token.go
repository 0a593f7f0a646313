package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken is one issued refresh credential.
//
// Rows are only ever soft-revoked: a token is usable while Revoked is false
// and now is before ExpiresAt. Rotation and logout flip Revoked, never back.
type RefreshToken struct {
	ID string `json:"id" gorm:"type:uuid;primaryKey"`

	UserID string `json:"user_id" gorm:"type:uuid;index;not null"`
	User   User   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	Token string `json:"-" gorm:"uniqueIndex;not null"`

	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	Revoked   bool      `json:"revoked" gorm:"not null;default:false;index"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the token can no longer be used at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
