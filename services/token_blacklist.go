package services

import (
	"time"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// TokenBlacklist records refresh tokens that must no longer be accepted.
type TokenBlacklist interface {
	IsRevoked(db *database.Database, jti string) (bool, error)
	// Revoke blacklists jti. It returns ErrTokenRevoked when jti was
	// already blacklisted, so exactly one of several concurrent callers wins.
	Revoke(db *database.Database, jti string, userID uuid.UUID, expiresAt time.Time) error
	PurgeExpired(db *database.Database, now time.Time) (int64, error)
}

type GormTokenBlacklist struct{}

func NewGormTokenBlacklist() *GormTokenBlacklist {
	return &GormTokenBlacklist{}
}

func (b *GormTokenBlacklist) IsRevoked(db *database.Database, jti string) (bool, error) {
	var count int64
	if err := db.DB.Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (b *GormTokenBlacklist) Revoke(db *database.Database, jti string, userID uuid.UUID, expiresAt time.Time) error {
	revoked := models.RevokedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: time.Now().UTC(),
	}

	result := db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&revoked)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenRevoked
	}
	return nil
}

// PurgeExpired drops blacklist rows for tokens that have expired anyway.
func (b *GormTokenBlacklist) PurgeExpired(db *database.Database, now time.Time) (int64, error) {
	result := db.DB.Where("expires_at < ?", now.UTC()).Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
