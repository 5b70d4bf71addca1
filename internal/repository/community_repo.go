package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// CommunityRepository reads health sessions and the teacher directory, and
// records session registrations.
type CommunityRepository interface {
	UpcomingSessions(ctx context.Context, from time.Time) ([]models.HealthSession, error)
	GetSession(ctx context.Context, id uint) (models.HealthSession, error)
	Register(ctx context.Context, reg *models.SessionRegistration) error
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository constructs a community repository backed by GORM.
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) UpcomingSessions(ctx context.Context, from time.Time) ([]models.HealthSession, error) {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())

	var sessions []models.HealthSession
	err := r.db.WithContext(ctx).
		Where("date >= ?", day).
		Order("date ASC, start_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *communityRepository) GetSession(ctx context.Context, id uint) (models.HealthSession, error) {
	var session models.HealthSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.HealthSession{}, err
	}
	return session, nil
}

func (r *communityRepository) Register(ctx context.Context, reg *models.SessionRegistration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *communityRepository) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	var teachers []models.Teacher
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&teachers).Error; err != nil {
		return nil, err
	}
	return teachers, nil
}
