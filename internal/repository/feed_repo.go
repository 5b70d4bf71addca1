package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// PostRow is a post joined with its author's display name.
type PostRow struct {
	ID        uint
	Author    string
	Content   string
	ImageURL  string
	Anonymous bool
	CreatedAt time.Time
}

// CommentRow is a comment joined with its author's display name.
type CommentRow struct {
	ID        uint
	Author    string
	Content   string
	CreatedAt time.Time
}

// FeedRepository persists community posts and comments.
type FeedRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	ListPosts(ctx context.Context, limit int) ([]PostRow, error)
	ListPostsByUser(ctx context.Context, userID uint, limit int) ([]PostRow, error)
	GetPost(ctx context.Context, id uint) (models.Post, error)
	DeletePost(ctx context.Context, id uint) error
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID uint) ([]CommentRow, error)
	GetComment(ctx context.Context, id uint) (models.Comment, error)
	DeleteComment(ctx context.Context, id uint) error
}

type feedRepository struct {
	db *gorm.DB
}

// NewFeedRepository constructs a feed repository backed by GORM.
func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *feedRepository) postQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("posts").
		Select("posts.id, users.display_name AS author, posts.content, posts.image_url, posts.anonymous, posts.created_at").
		Joins("JOIN users ON users.id = posts.user_id")
}

func (r *feedRepository) ListPosts(ctx context.Context, limit int) ([]PostRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var rows []PostRow
	err := r.postQuery(ctx).Order("posts.id DESC").Limit(limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *feedRepository) ListPostsByUser(ctx context.Context, userID uint, limit int) ([]PostRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var rows []PostRow
	err := r.postQuery(ctx).
		Where("posts.user_id = ?", userID).
		Order("posts.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *feedRepository) GetPost(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *feedRepository) DeletePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

func (r *feedRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *feedRepository) ListComments(ctx context.Context, postID uint) ([]CommentRow, error) {
	var rows []CommentRow
	err := r.db.WithContext(ctx).
		Table("comments").
		Select("comments.id, users.display_name AS author, comments.content, comments.created_at").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *feedRepository) GetComment(ctx context.Context, id uint) (models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (r *feedRepository) DeleteComment(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error
}
