package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID              string `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	Email           string `gorm:"uniqueIndex;not null"`
	PasswordHash    string `gorm:"not null"`
	Phone           string
	PreferredGenres datatypes.JSON `gorm:"type:jsonb"`
	Role            string         `gorm:"not null"`
	Verified        bool           `gorm:"not null"`
	OTPHash         string
	OTPExpiresAt    *time.Time
	VerifiedAt      *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time
}

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Author      string `gorm:"not null"`
	Description string `gorm:"type:text;not null"`
	Condition   string
	Genre       string
	CoverKey    string
	Available   bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type SwapRequestModel struct {
	ID              string    `gorm:"primaryKey"`
	FromUserID      string    `gorm:"not null;index"`
	ToUserID        string    `gorm:"not null;index"`
	OfferedBookID   string    `gorm:"not null"`
	RequestedBookID string    `gorm:"not null"`
	Status          string    `gorm:"not null;index"`
	CreatedAt       time.Time `gorm:"not null;index"`
}

type NotificationModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
