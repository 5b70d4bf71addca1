package models

import "time"

// Teacher is an administrative directory entry for the special-schools area.
type Teacher struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:128;not null" json:"name"`
	Subject string `gorm:"size:128" json:"subject"`
	School  string `gorm:"size:255" json:"school"`
}

// HealthSession is a scheduled community health event parents can register for.
type HealthSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Date      time.Time `gorm:"index;not null" json:"date"`
	StartTime string    `gorm:"size:5" json:"start_time"`
	EndTime   string    `gorm:"size:5" json:"end_time"`
	Location  string    `gorm:"size:255" json:"location"`
}

// SessionRegistration ties a user and child to a health session.
type SessionRegistration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"index;not null" json:"session_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ChildName string    `gorm:"size:128" json:"child_name"`
	CreatedAt time.Time `json:"created_at"`
}
