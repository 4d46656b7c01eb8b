package models

import (
	"time"

	"humrah/internal/domain"

	"gorm.io/gorm"
)

// RandomBooking is a public time-bounded offer by an initiator to be
// matched with any eligible stranger for a meetup.
type RandomBooking struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	InitiatorID uint   `gorm:"not null;index:idx_offers_initiator_created" json:"initiator_id"`
	Destination string `gorm:"size:255;not null" json:"destination"`
	City        string `gorm:"size:100;not null;index:idx_offers_status_city_date,priority:2" json:"city"` // case-folded
	Area        string `gorm:"size:100" json:"area"`                                                       // case-folded, optional

	Date        time.Time `gorm:"not null;index:idx_offers_status_city_date,priority:3" json:"date"`
	WindowStart string    `gorm:"size:5;not null" json:"window_start"` // HH:MM
	WindowEnd   string    `gorm:"size:5;not null" json:"window_end"`

	PreferredGender string `gorm:"size:10;not null;default:'ANY'" json:"preferred_gender"` // M, F, ANY
	AgeMin          int    `gorm:"not null" json:"age_min"`
	AgeMax          int    `gorm:"not null" json:"age_max"`
	Activity        string `gorm:"size:20;not null" json:"activity"` // WALK, FOOD, EXPLORE, EVENT, CASUAL
	Note            string `gorm:"size:500" json:"note"`

	Status       string     `gorm:"size:20;not null;default:'PENDING';index:idx_offers_status_city_date,priority:1" json:"status"`
	AcceptorID   *uint      `gorm:"index:idx_offers_acceptor_matched" json:"acceptor_id"`
	MatchedAt    *time.Time `gorm:"index:idx_offers_acceptor_matched" json:"matched_at"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	CancelReason string     `gorm:"size:255" json:"cancel_reason"`
	ChatID       *uint      `gorm:"index" json:"chat_id"`
	CompletedAt  *time.Time `json:"completed_at"`
	CompletedBy  *uint      `json:"completed_by"`
	UnderReview  bool       `gorm:"default:false" json:"under_review"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`

	CreatedAt time.Time      `gorm:"index:idx_offers_initiator_created" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Initiator User  `gorm:"foreignKey:InitiatorID" json:"-"`
	Acceptor  *User `gorm:"foreignKey:AcceptorID" json:"-"`
}

func (RandomBooking) TableName() string { return "random_bookings" }

func (b *RandomBooking) IsPending() bool { return b.Status == domain.OfferPending }
func (b *RandomBooking) IsMatched() bool { return b.Status == domain.OfferMatched }

// ChatExpiry is the horizon applied to the chat and key created on match:
// 24h past the meetup date, not the offer row's own matching TTL.
func (b *RandomBooking) ChatExpiry() time.Time {
	return b.Date.Add(domain.ChatTTL)
}

// MatchRecord is the append-only record of a won accept race, unique per
// offer so a duplicate insert is idempotent success.
type MatchRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BookingID   uint      `gorm:"uniqueIndex;not null" json:"booking_id"`
	InitiatorID uint      `gorm:"not null;index" json:"initiator_id"`
	AcceptorID  uint      `gorm:"not null;index" json:"acceptor_id"`
	MatchedAt   time.Time `gorm:"not null" json:"matched_at"`
	CreatedAt   time.Time `json:"created_at"`

	Booking RandomBooking `gorm:"foreignKey:BookingID" json:"-"`
}

func (MatchRecord) TableName() string { return "match_records" }

// WeeklyUsage counts random-booking activity per (user, ISO week).
// createdCount is capped at 1; cancels and no-shows are analytics only
// and never refund a consumed slot.
type WeeklyUsage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_usage_user_week,unique" json:"user_id"`
	ISOWeek      string    `gorm:"size:8;not null;index:idx_usage_user_week,unique" json:"iso_week"` // YYYY-Www
	CreatedCount int       `gorm:"not null;default:0" json:"created_count"`
	CancelCount  int       `gorm:"not null;default:0" json:"cancel_count"`
	NoShowCount  int       `gorm:"not null;default:0" json:"no_show_count"`
	WeekStart    time.Time `gorm:"not null" json:"week_start"`
	WeekEnd      time.Time `gorm:"not null;index" json:"week_end"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WeeklyUsage) TableName() string { return "weekly_usages" }
