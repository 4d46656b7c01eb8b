package repository

import (
	"errors"

	"humrah/internal/models"

	"gorm.io/gorm"
)

type SafetyRepository struct {
	db *gorm.DB
}

func NewSafetyRepository(db *gorm.DB) *SafetyRepository {
	return &SafetyRepository{db: db}
}

func (r *SafetyRepository) Create(report *models.SafetyReport) error {
	return r.db.Create(report).Error
}

func (r *SafetyRepository) GetByID(id uint) (*models.SafetyReport, error) {
	var rep models.SafetyReport
	err := r.db.First(&rep, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *SafetyRepository) GetByChatID(chatID uint) (*models.SafetyReport, error) {
	var rep models.SafetyReport
	err := r.db.Where("chat_id = ?", chatID).First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
