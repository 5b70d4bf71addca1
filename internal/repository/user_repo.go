package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// UserRepository persists accounts and resolves logins.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByCredentials(ctx context.Context, email, password string) (models.User, error)
	FindByID(ctx context.Context, id uint) (models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByCredentials(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND password = ?", email, password).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	pattern := "%" + query + "%"
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("display_name LIKE ? OR email LIKE ?", pattern, pattern).
		Order("display_name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
