package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
	"github.com/perentalassist/hub/internal/protocol"
	"github.com/perentalassist/hub/internal/repository"
)

// ErrEmptyMessage indicates a chat send whose body is blank after sanitizing.
var ErrEmptyMessage = errors.New("message body empty")

// ChatService owns conversations and message delivery. Sends are persisted
// first, then pushed to current subscribers; a client that missed pushes
// reconciles with FetchAfter using its last seen id.
type ChatService interface {
	OpenConversation(ctx context.Context, userID, otherID uint) (models.Conversation, error)
	ListConversations(ctx context.Context, userID uint) ([]repository.ConversationSummary, error)
	FetchAfter(ctx context.Context, convID, afterID uint) ([]models.Message, error)
	Send(ctx context.Context, convID, senderID uint, text string) (models.Message, error)
}

type chatService struct {
	repo   repository.ChatRepository
	pusher Pusher
	tracer trace.Tracer
	log    zerolog.Logger
}

// NewChatService constructs the chat service.
func NewChatService(repo repository.ChatRepository, pusher Pusher, logger zerolog.Logger) ChatService {
	return &chatService{
		repo:   repo,
		pusher: pusher,
		tracer: otel.Tracer("github.com/perentalassist/hub/internal/service/chat"),
		log:    logger.With().Str("component", "chat_service").Logger(),
	}
}

func (s *chatService) OpenConversation(ctx context.Context, userID, otherID uint) (models.Conversation, error) {
	conv, err := s.repo.FindDirectConversation(ctx, userID, otherID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Conversation{}, err
	}

	conv = models.Conversation{}
	if err := s.repo.CreateConversation(ctx, &conv, []uint{userID, otherID}); err != nil {
		return models.Conversation{}, err
	}

	s.log.Info().Uint("conversation_id", conv.ID).Msg("conversation created")
	return conv, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID uint) ([]repository.ConversationSummary, error) {
	return s.repo.ListSummaries(ctx, userID)
}

func (s *chatService) FetchAfter(ctx context.Context, convID, afterID uint) ([]models.Message, error) {
	return s.repo.ListMessagesAfter(ctx, convID, afterID)
}

func (s *chatService) Send(ctx context.Context, convID, senderID uint, text string) (models.Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.Int64("chat.conversation_id", int64(convID)),
		attribute.Int64("chat.sender_id", int64(senderID)),
	))
	defer span.End()

	text = strings.TrimSpace(protocol.Sanitize(text))
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	msg := models.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Body:           text,
	}
	if err := s.repo.SaveMessage(ctx, &msg); err != nil {
		span.RecordError(err)
		return models.Message{}, err
	}

	s.pusher.BroadcastChat(convID, MessageLine(msg))
	return msg, nil
}

// MessageLine renders the MSG push for a stored message.
func MessageLine(msg models.Message) string {
	return protocol.Join(
		"MSG",
		strconv.FormatUint(uint64(msg.ConversationID), 10),
		strconv.FormatUint(uint64(msg.ID), 10),
		strconv.FormatUint(uint64(msg.SenderID), 10),
		msg.Body,
		protocol.FormatTimestamp(msg.CreatedAt),
	)
}
