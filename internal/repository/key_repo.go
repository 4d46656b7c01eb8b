package repository

import (
	"errors"
	"time"

	"humrah/internal/models"

	"gorm.io/gorm"
)

type KeyRepository struct {
	db *gorm.DB
}

func NewKeyRepository(db *gorm.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// Create inserts the key row and its grants in one transaction.
func (r *KeyRepository) Create(k *models.EncryptionKey, grants []models.KeyGrant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(k).Error; err != nil {
			return err
		}
		for i := range grants {
			grants[i].KeyRowID = k.ID
		}
		if len(grants) > 0 {
			if err := tx.Create(&grants).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *KeyRepository) GetByKeyID(keyID string) (*models.EncryptionKey, error) {
	var k models.EncryptionKey
	err := r.db.Preload("Grants").Where("key_id = ?", keyID).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// RecordAccess bumps the access counter and stamps last access.
func (r *KeyRepository) RecordAccess(keyID string, at time.Time) error {
	return r.db.Model(&models.EncryptionKey{}).
		Where("key_id = ?", keyID).
		Updates(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": at,
		}).Error
}

// Destroy soft-deletes the key and nulls the sealed secret. The row stays
// for audit; the material is gone.
func (r *KeyRepository) Destroy(keyID string, now time.Time) error {
	return r.db.Model(&models.EncryptionKey{}).
		Where("key_id = ? AND deleted = ?", keyID, false).
		Updates(map[string]interface{}{
			"deleted":         true,
			"deleted_at_time": now,
			"sealed_secret":   nil,
		}).Error
}

// DestroyExpired sweeps every live key past its expiry.
func (r *KeyRepository) DestroyExpired(now time.Time) (int64, error) {
	res := r.db.Model(&models.EncryptionKey{}).
		Where("deleted = ? AND expires_at < ?", false, now).
		Updates(map[string]interface{}{
			"deleted":         true,
			"deleted_at_time": now,
			"sealed_secret":   nil,
		})
	return res.RowsAffected, res.Error
}
