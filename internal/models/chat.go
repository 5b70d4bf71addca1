package models

import "time"

// Conversation groups messages between two or more users. Created lazily the
// first time two users chat and never deleted.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationMember ties a user into a conversation. The pair is unique.
type ConversationMember struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ConversationID uint `gorm:"index;uniqueIndex:idx_conv_member;not null" json:"conversation_id"`
	UserID         uint `gorm:"uniqueIndex:idx_conv_member;not null" json:"user_id"`
}

// Message is an immutable chat line. The auto-increment primary key doubles as
// the per-conversation cursor: ids are strictly increasing, so clients resume
// with CHAT_FETCH|convId|lastSeenId after a gap.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint      `gorm:"index;not null" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
