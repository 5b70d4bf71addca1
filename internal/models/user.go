package models

import "time"

// User is an account created at signup. Accounts are never deleted.
//
// The credential is stored and compared as-is: the desktop client predates any
// hashing scheme and the wire contract with it is preserved.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	DisplayName string    `gorm:"size:128;not null" json:"display_name"`
	Role        string    `gorm:"size:32;not null;default:parent" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
