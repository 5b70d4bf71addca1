package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
	"github.com/perentalassist/hub/internal/protocol"
	"github.com/perentalassist/hub/internal/repository"
)

// anonymousAuthor replaces the display name of authors who posted anonymously.
const anonymousAuthor = "Anonymous"

// FeedService owns community posts and comments. New comments are pushed to
// subscribers of the post's topic.
type FeedService interface {
	CreatePost(ctx context.Context, userID uint, content, imageURL string, anonymous bool) (models.Post, error)
	ListPosts(ctx context.Context) ([]repository.PostRow, error)
	ListPostsByUser(ctx context.Context, userID uint) ([]repository.PostRow, error)
	DeletePost(ctx context.Context, postID, userID uint) error
	CreateComment(ctx context.Context, postID, userID uint, content string) (models.Comment, error)
	ListComments(ctx context.Context, postID uint) ([]repository.CommentRow, error)
	DeleteComment(ctx context.Context, commentID, userID uint) error
}

type feedService struct {
	repo   repository.FeedRepository
	users  repository.UserRepository
	pusher Pusher
	log    zerolog.Logger
}

// NewFeedService constructs the feed service.
func NewFeedService(repo repository.FeedRepository, users repository.UserRepository, pusher Pusher, logger zerolog.Logger) FeedService {
	return &feedService{
		repo:   repo,
		users:  users,
		pusher: pusher,
		log:    logger.With().Str("component", "feed_service").Logger(),
	}
}

func (s *feedService) CreatePost(ctx context.Context, userID uint, content, imageURL string, anonymous bool) (models.Post, error) {
	content = strings.TrimSpace(protocol.Sanitize(content))
	if content == "" {
		return models.Post{}, ErrEmptyMessage
	}

	post := models.Post{
		UserID:    userID,
		Content:   content,
		ImageURL:  strings.TrimSpace(imageURL),
		Anonymous: anonymous,
	}
	if err := s.repo.CreatePost(ctx, &post); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func maskAnonymous(rows []repository.PostRow) []repository.PostRow {
	for i := range rows {
		if rows[i].Anonymous {
			rows[i].Author = anonymousAuthor
		}
	}
	return rows
}

func (s *feedService) ListPosts(ctx context.Context) ([]repository.PostRow, error) {
	rows, err := s.repo.ListPosts(ctx, 100)
	if err != nil {
		return nil, err
	}
	return maskAnonymous(rows), nil
}

func (s *feedService) ListPostsByUser(ctx context.Context, userID uint) ([]repository.PostRow, error) {
	rows, err := s.repo.ListPostsByUser(ctx, userID, 100)
	if err != nil {
		return nil, err
	}
	return maskAnonymous(rows), nil
}

func (s *feedService) DeletePost(ctx context.Context, postID, userID uint) error {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if post.UserID != userID {
		return ErrForbidden
	}
	return s.repo.DeletePost(ctx, postID)
}

func (s *feedService) CreateComment(ctx context.Context, postID, userID uint, content string) (models.Comment, error) {
	content = strings.TrimSpace(protocol.Sanitize(content))
	if content == "" {
		return models.Comment{}, ErrEmptyMessage
	}

	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, err
	}

	comment := models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}
	if err := s.repo.CreateComment(ctx, &comment); err != nil {
		return models.Comment{}, err
	}

	author := ""
	if user, err := s.users.FindByID(ctx, userID); err == nil {
		author = user.DisplayName
	}

	s.pusher.BroadcastComments(postID, commentLine(comment, author))
	return comment, nil
}

func (s *feedService) ListComments(ctx context.Context, postID uint) ([]repository.CommentRow, error) {
	return s.repo.ListComments(ctx, postID)
}

func (s *feedService) DeleteComment(ctx context.Context, commentID, userID uint) error {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if comment.UserID != userID {
		return ErrForbidden
	}
	return s.repo.DeleteComment(ctx, commentID)
}

func commentLine(comment models.Comment, author string) string {
	return protocol.Join(
		"COMMENT",
		strconv.FormatUint(uint64(comment.PostID), 10),
		strconv.FormatUint(uint64(comment.ID), 10),
		protocol.Sanitize(author),
		comment.Content,
		protocol.FormatTimestamp(comment.CreatedAt),
	)
}
