package repository

import (
	"errors"
	"time"

	"humrah/internal/domain"
	"humrah/internal/models"

	"gorm.io/gorm"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) WithTx(tx *gorm.DB) *UsageRepository {
	return &UsageRepository{db: tx}
}

func (r *UsageRepository) GetByUserWeek(userID uint, isoWeek string) (*models.WeeklyUsage, error) {
	var u models.WeeklyUsage
	err := r.db.Where("user_id = ? AND iso_week = ?", userID, isoWeek).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ConsumeCreated is the atomic check-and-increment backing the one-offer-
// per-week cap. It first tries a guarded increment on an existing row;
// if no row exists it inserts one, and a duplicate-key race retries the
// guarded increment. Returns false when the cap is already spent.
func (r *UsageRepository) ConsumeCreated(userID uint, isoWeek string, weekStart, weekEnd time.Time) (bool, error) {
	guarded := func() (bool, error) {
		res := r.db.Model(&models.WeeklyUsage{}).
			Where("user_id = ? AND iso_week = ? AND created_count < ?", userID, isoWeek, domain.WeeklyOfferCap).
			Update("created_count", gorm.Expr("created_count + 1"))
		return res.RowsAffected == 1, res.Error
	}

	ok, err := guarded()
	if err != nil || ok {
		return ok, err
	}

	// No incrementable row: either the slot is spent or the row is absent.
	existing, err := r.GetByUserWeek(userID, isoWeek)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil // cap spent
	}

	row := &models.WeeklyUsage{
		UserID:       userID,
		ISOWeek:      isoWeek,
		CreatedCount: 1,
		WeekStart:    weekStart,
		WeekEnd:      weekEnd,
	}
	err = r.db.Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the insert race; the winner's row decides.
		return guarded()
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// incrementCounter upserts the week row and bumps one analytics counter.
func (r *UsageRepository) incrementCounter(userID uint, isoWeek, column string, weekStart, weekEnd time.Time) error {
	res := r.db.Model(&models.WeeklyUsage{}).
		Where("user_id = ? AND iso_week = ?", userID, isoWeek).
		Update(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	row := &models.WeeklyUsage{UserID: userID, ISOWeek: isoWeek, WeekStart: weekStart, WeekEnd: weekEnd}
	switch column {
	case "cancel_count":
		row.CancelCount = 1
	case "no_show_count":
		row.NoShowCount = 1
	}
	err := r.db.Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.db.Model(&models.WeeklyUsage{}).
			Where("user_id = ? AND iso_week = ?", userID, isoWeek).
			Update(column, gorm.Expr(column+" + 1")).Error
	}
	return err
}

func (r *UsageRepository) IncrementCancel(userID uint, isoWeek string, weekStart, weekEnd time.Time) error {
	return r.incrementCounter(userID, isoWeek, "cancel_count", weekStart, weekEnd)
}

func (r *UsageRepository) IncrementNoShow(userID uint, isoWeek string, weekStart, weekEnd time.Time) error {
	return r.incrementCounter(userID, isoWeek, "no_show_count", weekStart, weekEnd)
}

// PurgeOlderThan hard-deletes usage rows whose week ended before cutoff.
func (r *UsageRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Unscoped().Where("week_end < ?", cutoff).Delete(&models.WeeklyUsage{})
	return res.RowsAffected, res.Error
}
