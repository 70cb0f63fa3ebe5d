package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a wiki account. Passwords are stored as bcrypt hashes only.
// Profile attributes are typed columns; every mutation goes through the users
// store which persists immediately.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash  string    `gorm:"size:255;not null" json:"-"`
	FName         string    `gorm:"size:64" json:"fname"`
	LName         string    `gorm:"size:64" json:"lname"`
	Email         string    `gorm:"size:255" json:"email"`
	Phone         string    `gorm:"size:32" json:"phone"`
	Active        bool      `gorm:"default:true" json:"active"`
	Authenticated bool      `gorm:"default:false" json:"authenticated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
