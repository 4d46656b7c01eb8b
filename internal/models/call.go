package models

import (
	"time"

	"humrah/internal/domain"

	"gorm.io/gorm"
)

// VoiceCall is one signaling-plane call between the two participants of a
// matched booking. Media flows through an external RTC provider; only the
// state machine lives here. Audio is never recorded.
type VoiceCall struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CallerID   uint   `gorm:"not null;index:idx_calls_caller_status" json:"caller_id"`
	ReceiverID uint   `gorm:"not null;index:idx_calls_receiver_status" json:"receiver_id"`
	BookingID  uint   `gorm:"not null;index:idx_calls_booking_created" json:"booking_id"`
	Channel    string `gorm:"uniqueIndex;size:128;not null" json:"channel"`

	CallerRTCUID   uint32  `gorm:"not null" json:"caller_rtc_uid"`
	ReceiverRTCUID *uint32 `json:"receiver_rtc_uid"`

	Status      string     `gorm:"size:20;not null;default:'RINGING';index:idx_calls_caller_status;index:idx_calls_receiver_status;index:idx_calls_status_initiated" json:"status"`
	InitiatedAt time.Time  `gorm:"not null;index:idx_calls_status_initiated" json:"initiated_at"`
	AcceptedAt  *time.Time `json:"accepted_at"`
	ConnectedAt *time.Time `json:"connected_at"`
	EndedAt     *time.Time `json:"ended_at"`
	Duration    *int64     `json:"duration"` // seconds, only when connected
	EndReason   string     `gorm:"size:40" json:"end_reason,omitempty"`
	FailReason  string     `gorm:"size:255" json:"failure_reason,omitempty"`

	CallerQuality   string `gorm:"size:20" json:"caller_quality,omitempty"`
	ReceiverQuality string `gorm:"size:20" json:"receiver_quality,omitempty"`

	// AudioRecorded is immutable and always false; BeforeSave rejects any
	// attempt to flip it.
	AudioRecorded bool `gorm:"not null;default:false" json:"audio_recorded"`

	CreatedAt time.Time      `gorm:"index:idx_calls_booking_created,sort:desc" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Caller   User          `gorm:"foreignKey:CallerID" json:"-"`
	Receiver User          `gorm:"foreignKey:ReceiverID" json:"-"`
	Booking  RandomBooking `gorm:"foreignKey:BookingID" json:"-"`
}

func (VoiceCall) TableName() string { return "voice_calls" }

// BeforeSave enforces the no-recording invariant at the persistence edge.
func (v *VoiceCall) BeforeSave(tx *gorm.DB) error {
	if v.AudioRecorded {
		return gorm.ErrInvalidData
	}
	return nil
}

func (v *VoiceCall) IsActive() bool { return domain.CallActive(v.Status) }

// IsParticipant reports whether userID is caller or receiver.
func (v *VoiceCall) IsParticipant(userID uint) bool {
	return userID == v.CallerID || userID == v.ReceiverID
}

// ComputeDuration derives whole seconds between connect and end; nil when
// the call never reached CONNECTED.
func (v *VoiceCall) ComputeDuration() *int64 {
	if v.ConnectedAt == nil || v.EndedAt == nil {
		return nil
	}
	d := int64(v.EndedAt.Sub(*v.ConnectedAt) / time.Second)
	if d < 0 {
		d = 0
	}
	return &d
}
