package models

import (
	"time"

	"humrah/internal/domain"

	"gorm.io/gorm"
)

// User is the slice of the account profile the meetup engine consumes:
// eligibility fields (gender, DOB, city, geo) and safety state (status,
// blocks). Registration and profile management live elsewhere.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email       string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Status      string         `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"` // ACTIVE, SUSPENDED, BANNED
	Gender      string         `gorm:"size:10" json:"gender"`                                 // M, F
	DateOfBirth *time.Time     `json:"date_of_birth"`
	City        string         `gorm:"size:100;index" json:"city"` // stored case-folded
	Area        string         `gorm:"size:100" json:"area"`
	Lat         *float64       `json:"lat"`
	Lng         *float64       `json:"lng"`
	AvatarURL   string         `gorm:"size:512" json:"avatar_url"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsActive() bool { return u.Status == domain.UserActive }

func (u *User) HasLocation() bool { return u.Lat != nil && u.Lng != nil }

// Age returns age in whole years at t; 0 when DOB is unset.
func (u *User) Age(t time.Time) int {
	if u.DateOfBirth == nil {
		return 0
	}
	age := t.Year() - u.DateOfBirth.Year()
	if t.YearDay() < u.DateOfBirth.YearDay() {
		age--
	}
	return age
}

// Block is a directed user-to-user block; either direction vetoes calls.
type Block struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BlockerID uint           `gorm:"not null;index:idx_block_pair,unique" json:"blocker_id"`
	BlockedID uint           `gorm:"not null;index:idx_block_pair,unique" json:"blocked_id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Blocker User `gorm:"foreignKey:BlockerID" json:"-"`
	Blocked User `gorm:"foreignKey:BlockedID" json:"-"`
}

func (Block) TableName() string { return "blocks" }
