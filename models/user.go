package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a local profile row for an externally authenticated principal.
// Identity is established by the JWT issuer; rows are provisioned on
// first authenticated request, so no password material is stored here.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"size:255" json:"email,omitempty"`
	AvatarURL string         `gorm:"size:512" json:"avatar_url"`
	Bio       string         `gorm:"size:255" json:"bio"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Posts     []Post         `json:"-"`
	Comments  []Comment      `json:"-"`
}
