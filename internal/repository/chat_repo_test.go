package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

func TestChatRepositoryFindDirectConversation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	_, err := repo.FindDirectConversation(ctx, 1, 2)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	conv := models.Conversation{}
	require.NoError(t, repo.CreateConversation(ctx, &conv, []uint{1, 2}))
	require.NotZero(t, conv.ID)

	found, err := repo.FindDirectConversation(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, conv.ID, found.ID)

	// Member order must not matter.
	found, err = repo.FindDirectConversation(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, conv.ID, found.ID)

	// A conversation with a third user is a different conversation.
	_, err = repo.FindDirectConversation(ctx, 1, 3)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChatRepositoryListSummariesTitleFallback(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	me := models.User{Email: "me@example.com", Password: "pw", DisplayName: "Me"}
	peer := models.User{Email: "peer@example.com", Password: "pw", DisplayName: "Dr. Sari"}
	require.NoError(t, db.Create(&me).Error)
	require.NoError(t, db.Create(&peer).Error)

	untitled := models.Conversation{}
	require.NoError(t, repo.CreateConversation(ctx, &untitled, []uint{me.ID, peer.ID}))

	titled := models.Conversation{Title: "Support group"}
	require.NoError(t, repo.CreateConversation(ctx, &titled, []uint{me.ID, peer.ID}))

	summaries, err := repo.ListSummaries(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := make(map[uint]string, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s.Title
	}
	require.Equal(t, "Dr. Sari", byID[untitled.ID], "untitled conversation shows the peer's name")
	require.Equal(t, "Support group", byID[titled.ID])
}

func TestChatRepositoryListMessagesAfter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	conv := models.Conversation{}
	require.NoError(t, repo.CreateConversation(ctx, &conv, []uint{1, 2}))

	var ids []uint
	for _, body := range []string{"first", "second", "third"} {
		msg := models.Message{ConversationID: conv.ID, SenderID: 1, Body: body}
		require.NoError(t, repo.SaveMessage(ctx, &msg))
		ids = append(ids, msg.ID)
	}

	msgs, err := repo.ListMessagesAfter(ctx, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "first", msgs[0].Body)

	msgs, err = repo.ListMessagesAfter(ctx, conv.ID, ids[0])
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "second", msgs[0].Body)
	require.Equal(t, "third", msgs[1].Body)

	msgs, err = repo.ListMessagesAfter(ctx, conv.ID, ids[2])
	require.NoError(t, err)
	require.Empty(t, msgs)
}
