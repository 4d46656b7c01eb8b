package repository

import (
	"errors"
	"time"

	"humrah/internal/domain"
	"humrah/internal/models"

	"gorm.io/gorm"
)

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

func (r *CallRepository) Create(v *models.VoiceCall) error {
	return r.db.Create(v).Error
}

func (r *CallRepository) GetByID(id uint) (*models.VoiceCall, error) {
	var v models.VoiceCall
	err := r.db.First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// HealStaleForUser force-ends the user's non-terminal calls initiated
// before cutoff (silent client crashes). Must run before any busy check;
// it is the only liveness source for the busy invariant.
func (r *CallRepository) HealStaleForUser(userID uint, cutoff, now time.Time) (int64, error) {
	res := r.db.Model(&models.VoiceCall{}).
		Where("(caller_id = ? OR receiver_id = ?) AND status IN ? AND initiated_at < ?",
			userID, userID, domain.CallActiveStatuses, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.CallEnded,
			"end_reason": domain.EndReasonAutoTimeout,
			"ended_at":   now,
		})
	return res.RowsAffected, res.Error
}

// HealStaleGlobal is the janitor mirror of HealStaleForUser, covering
// orphans no busy check will ever touch.
func (r *CallRepository) HealStaleGlobal(cutoff, now time.Time) (int64, error) {
	res := r.db.Model(&models.VoiceCall{}).
		Where("status IN ? AND initiated_at < ?", domain.CallActiveStatuses, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.CallEnded,
			"end_reason": domain.EndReasonAutoTimeout,
			"ended_at":   now,
		})
	return res.RowsAffected, res.Error
}

// GetActiveForUser returns the user's current non-terminal call, if any.
// Callers are expected to heal first.
func (r *CallRepository) GetActiveForUser(userID uint) (*models.VoiceCall, error) {
	var v models.VoiceCall
	err := r.db.
		Where("(caller_id = ? OR receiver_id = ?) AND status IN ?", userID, userID, domain.CallActiveStatuses).
		Order("initiated_at DESC").First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// TransitionCAS applies updates only while the call still holds `from`,
// making every signaling edge idempotent under concurrent delivery.
func (r *CallRepository) TransitionCAS(id uint, from string, updates map[string]interface{}) (bool, error) {
	res := r.db.Model(&models.VoiceCall{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// EndActiveCAS ends a call from any non-terminal state.
func (r *CallRepository) EndActiveCAS(id uint, updates map[string]interface{}) (bool, error) {
	res := r.db.Model(&models.VoiceCall{}).
		Where("id = ? AND status IN ?", id, domain.CallActiveStatuses).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// TimeoutRinging flips unanswered RINGING calls past the ring window to
// TIMEOUT.
func (r *CallRepository) TimeoutRinging(cutoff, now time.Time) (int64, error) {
	res := r.db.Model(&models.VoiceCall{}).
		Where("status = ? AND initiated_at < ?", domain.CallRinging, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.CallTimeout,
			"end_reason": domain.EndReasonNoAnswer,
			"ended_at":   now,
		})
	return res.RowsAffected, res.Error
}

// CapConnected force-ends calls connected for longer than the duration
// cap, stamping the derived duration.
func (r *CallRepository) CapConnected(cutoff, now time.Time) (int64, error) {
	res := r.db.Model(&models.VoiceCall{}).
		Where("status = ? AND connected_at < ?", domain.CallConnected, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.CallEnded,
			"end_reason": domain.EndReasonMaxDuration,
			"ended_at":   now,
			"duration":   gorm.Expr("FLOOR(TIMESTAMPDIFF(MICROSECOND, connected_at, ?) / 1000000)", now),
		})
	return res.RowsAffected, res.Error
}

// PurgeOlderThan hard-deletes terminal call rows past the retention
// window.
func (r *CallRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Unscoped().
		Where("status NOT IN ? AND created_at < ?", domain.CallActiveStatuses, cutoff).
		Delete(&models.VoiceCall{})
	return res.RowsAffected, res.Error
}
