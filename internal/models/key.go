package models

import (
	"time"

	"gorm.io/gorm"
)

// EncryptionKey stores a chat's symmetric key separately from the chat row
// so the row can survive (legal hold, review) while the secret is
// independently destroyed. SealedSecret is the chacha20-poly1305 sealed
// key material; it is nulled on deletion.
type EncryptionKey struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	KeyID         string     `gorm:"uniqueIndex;size:64;not null" json:"key_id"`
	SealedSecret  []byte     `gorm:"size:512" json:"-"`
	Purpose       string     `gorm:"size:20;not null" json:"purpose"` // RANDOM_BOOKING, SUPPORT_CHAT
	ExpiresAt     time.Time  `gorm:"not null;index" json:"expires_at"`
	Deleted       bool       `gorm:"default:false;index" json:"-"`
	DeletedAtTime *time.Time `json:"-"`

	AccessCount    int64      `gorm:"not null;default:0" json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Grants []KeyGrant `gorm:"foreignKey:KeyRowID" json:"grants,omitempty"`
}

func (EncryptionKey) TableName() string { return "encryption_keys" }

// KeyGrant is one acl entry on a key.
type KeyGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	KeyRowID  uint      `gorm:"not null;index:idx_grants_key_user,unique" json:"-"`
	UserID    uint      `gorm:"not null;index:idx_grants_key_user,unique" json:"user_id"`
	Level     string    `gorm:"size:10;not null" json:"level"` // READ, WRITE, ADMIN
	GrantedAt time.Time `gorm:"not null" json:"granted_at"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (KeyGrant) TableName() string { return "key_grants" }
