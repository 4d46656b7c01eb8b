package models

import (
	"time"

	"humrah/internal/domain"

	"gorm.io/gorm"
)

// Chat is the ephemeral two-party channel created for exactly one matched
// booking. Its row, messages and key are erased after the expiry horizon
// unless frozen by a safety report.
type Chat struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	BookingID      uint       `gorm:"uniqueIndex;not null" json:"booking_id"`
	InitiatorID    uint       `gorm:"not null;index" json:"initiator_id"`
	AccepterID     uint       `gorm:"not null;index" json:"accepter_id"`
	KeyID          string     `gorm:"size:64;not null" json:"key_id"`
	Status         string     `gorm:"size:20;not null;default:'ACTIVE';index:idx_chats_status_expires" json:"status"` // ACTIVE, COMPLETED, EXPIRED, UNDER_REVIEW
	ExpiresAt      time.Time  `gorm:"not null;index:idx_chats_status_expires" json:"expires_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	HasReport      bool       `gorm:"default:false;index:idx_chats_report_status" json:"has_report"`
	ReportID       *uint      `json:"report_id"`
	Deleted        bool       `gorm:"default:false;index" json:"-"`
	DeletedAtTime  *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Booking   RandomBooking `gorm:"foreignKey:BookingID" json:"-"`
	Initiator User          `gorm:"foreignKey:InitiatorID" json:"-"`
	Accepter  User          `gorm:"foreignKey:AccepterID" json:"-"`
}

func (Chat) TableName() string { return "chats" }

// IsParticipant reports whether userID is one of the two parties.
func (c *Chat) IsParticipant(userID uint) bool {
	return userID == c.InitiatorID || userID == c.AccepterID
}

// PeerOf returns the other participant, or 0 for non-participants.
func (c *Chat) PeerOf(userID uint) uint {
	switch userID {
	case c.InitiatorID:
		return c.AccepterID
	case c.AccepterID:
		return c.InitiatorID
	}
	return 0
}

// RoleOf returns INITIATOR or ACCEPTER, empty for non-participants.
func (c *Chat) RoleOf(userID uint) string {
	switch userID {
	case c.InitiatorID:
		return domain.RoleInitiator
	case c.AccepterID:
		return domain.RoleAccepter
	}
	return ""
}

func (c *Chat) IsExpired(now time.Time) bool { return c.ExpiresAt.Before(now) }

// CanDelete gates the deletion cascade: expired, never reported, and not
// frozen for review.
func (c *Chat) CanDelete(now time.Time) bool {
	return c.IsExpired(now) && !c.HasReport && c.Status != domain.ChatUnderReview
}

// ChatMessage is a single message with a monotone tri-state delivery
// status. Timestamps are server-assigned.
type ChatMessage struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ChatID     uint   `gorm:"not null;index:idx_messages_chat_ts;index:idx_messages_chat_delivery" json:"chat_id"`
	SenderID   uint   `gorm:"not null;index" json:"sender_id"`
	SenderRole string `gorm:"size:10;not null;default:'USER'" json:"sender_role"` // USER, ADMIN
	Content    string `gorm:"size:5000;not null" json:"content"`
	Kind       string `gorm:"size:10;not null;default:'TEXT'" json:"kind"` // TEXT, IMAGE, FILE
	IsSystem   bool   `gorm:"default:false" json:"is_system"`
	Attachment string `gorm:"size:512" json:"attachment,omitempty"`

	Delivery    string     `gorm:"size:12;not null;default:'SENT';index:idx_messages_chat_delivery" json:"delivery"` // SENT, DELIVERED, READ
	DeliveredAt *time.Time `json:"delivered_at"`
	ReadAt      *time.Time `json:"read_at"`

	Timestamp time.Time      `gorm:"not null;index:idx_messages_chat_ts,sort:desc" json:"timestamp"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Chat   Chat `gorm:"foreignKey:ChatID" json:"-"`
	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// SafetyReport freezes its chat from deletion and queues it for admin
// review; moderation workflows beyond the freeze live elsewhere.
type SafetyReport struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Reference  string         `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	ChatID     uint           `gorm:"not null;index" json:"chat_id"`
	ReporterID uint           `gorm:"not null;index" json:"reporter_id"`
	ReportedID uint           `gorm:"not null;index" json:"reported_id"`
	Category   string         `gorm:"size:30;not null" json:"category"` // HARASSMENT, SPAM, ...
	Details    string         `gorm:"type:text" json:"details"`
	Status     string         `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Chat     Chat `gorm:"foreignKey:ChatID" json:"-"`
	Reporter User `gorm:"foreignKey:ReporterID" json:"-"`
	Reported User `gorm:"foreignKey:ReportedID" json:"-"`
}

func (SafetyReport) TableName() string { return "safety_reports" }
