package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// ConversationSummary is one row of a user's conversation list. Title falls
// back to the other member's display name when the conversation is untitled.
type ConversationSummary struct {
	ID    uint
	Title string
}

// ChatRepository persists conversations, memberships and messages.
type ChatRepository interface {
	FindDirectConversation(ctx context.Context, userA, userB uint) (models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation, memberIDs []uint) error
	ListSummaries(ctx context.Context, userID uint) ([]ConversationSummary, error)
	SaveMessage(ctx context.Context, msg *models.Message) error
	ListMessagesAfter(ctx context.Context, convID, afterID uint) ([]models.Message, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) FindDirectConversation(ctx context.Context, userA, userB uint) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members m1 ON m1.conversation_id = conversations.id AND m1.user_id = ?", userA).
		Joins("JOIN conversation_members m2 ON m2.conversation_id = conversations.id AND m2.user_id = ?", userB).
		First(&conv).Error
	if err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

func (r *chatRepository) CreateConversation(ctx context.Context, conv *models.Conversation, memberIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, id := range memberIDs {
			member := models.ConversationMember{ConversationID: conv.ID, UserID: id}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *chatRepository) ListSummaries(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	var out []ConversationSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id AS id,
		       COALESCE(NULLIF(c.title, ''), MIN(u.display_name), '') AS title
		FROM conversations c
		JOIN conversation_members me ON me.conversation_id = c.id AND me.user_id = ?
		LEFT JOIN conversation_members other ON other.conversation_id = c.id AND other.user_id <> ?
		LEFT JOIN users u ON u.id = other.user_id
		GROUP BY c.id, c.title
		ORDER BY c.id DESC`, userID, userID).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatRepository) SaveMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepository) ListMessagesAfter(ctx context.Context, convID, afterID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id > ?", convID, afterID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
