package repository

import (
	"errors"
	"time"

	"humrah/internal/domain"
	"humrah/internal/models"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithTx returns a copy bound to tx, so offer insert and quota consume can
// share one transaction.
func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return &BookingRepository{db: tx}
}

func (r *BookingRepository) Create(b *models.RandomBooking) error {
	return r.db.Create(b).Error
}

func (r *BookingRepository) GetByID(id uint) (*models.RandomBooking, error) {
	var b models.RandomBooking
	err := r.db.First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) Update(b *models.RandomBooking) error {
	return r.db.Save(b).Error
}

// AcceptCAS is the winner-selection mechanism: a conditional update on
// {id, status=PENDING, expires_at>now}. Exactly one concurrent acceptor
// observes RowsAffected=1; everyone else lost the race.
func (r *BookingRepository) AcceptCAS(id, acceptorID uint, now time.Time) (bool, error) {
	res := r.db.Model(&models.RandomBooking{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, domain.OfferPending, now).
		Updates(map[string]interface{}{
			"status":      domain.OfferMatched,
			"acceptor_id": acceptorID,
			"matched_at":  now,
		})
	return res.RowsAffected == 1, res.Error
}

// CancelCAS transitions PENDING→CANCELLED for the initiator only.
func (r *BookingRepository) CancelCAS(id, initiatorID uint, reason string, now time.Time) (bool, error) {
	res := r.db.Model(&models.RandomBooking{}).
		Where("id = ? AND initiator_id = ? AND status = ?", id, initiatorID, domain.OfferPending).
		Updates(map[string]interface{}{
			"status":        domain.OfferCancelled,
			"cancelled_at":  now,
			"cancel_reason": reason,
		})
	return res.RowsAffected == 1, res.Error
}

// CompleteCAS stamps the completed-meetup annotation while status stays
// MATCHED; only the first participant to call it wins the stamp.
func (r *BookingRepository) CompleteCAS(id, byUserID uint, now time.Time) (bool, error) {
	res := r.db.Model(&models.RandomBooking{}).
		Where("id = ? AND status = ? AND completed_at IS NULL", id, domain.OfferMatched).
		Updates(map[string]interface{}{
			"completed_at": now,
			"completed_by": byUserID,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *BookingRepository) SetChatID(id, chatID uint) error {
	return r.db.Model(&models.RandomBooking{}).Where("id = ?", id).
		Update("chat_id", chatID).Error
}

// ListOpenByCity returns PENDING offers in the caller's city that are
// still inside both the matching TTL and the meetup date. Per-caller
// preference filtering happens in the service.
func (r *BookingRepository) ListOpenByCity(city string, excludeInitiator uint, now time.Time, limit int) ([]models.RandomBooking, error) {
	var list []models.RandomBooking
	err := r.db.
		Where("status = ? AND city = ? AND initiator_id != ? AND expires_at > ? AND date > ?",
			domain.OfferPending, city, excludeInitiator, now, now).
		Order("created_at DESC").
		Limit(limit).
		Preload("Initiator").
		Find(&list).Error
	return list, err
}

func (r *BookingRepository) ListByInitiator(initiatorID uint, limit, offset int) ([]models.RandomBooking, error) {
	var list []models.RandomBooking
	err := r.db.Where("initiator_id = ?", initiatorID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// ExpireUnmatched flips PENDING offers past their TTL to EXPIRED and
// returns how many rows moved. Safe to run concurrently.
func (r *BookingRepository) ExpireUnmatched(now time.Time) (int64, error) {
	res := r.db.Model(&models.RandomBooking{}).
		Where("status = ? AND expires_at < ?", domain.OfferPending, now).
		Update("status", domain.OfferExpired)
	return res.RowsAffected, res.Error
}

// CreateMatchRecord inserts the append-only match row. A duplicate key on
// booking_id means another path already recorded this match; treated as
// idempotent success.
func (r *BookingRepository) CreateMatchRecord(m *models.MatchRecord) error {
	err := r.db.Create(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *BookingRepository) GetMatchRecord(bookingID uint) (*models.MatchRecord, error) {
	var m models.MatchRecord
	err := r.db.Where("booking_id = ?", bookingID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
