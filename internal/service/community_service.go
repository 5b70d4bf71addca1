package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
	"github.com/perentalassist/hub/internal/protocol"
	"github.com/perentalassist/hub/internal/repository"
)

// CommunityService covers health sessions and the teacher directory.
type CommunityService interface {
	UpcomingSessions(ctx context.Context) ([]models.HealthSession, error)
	RegisterSession(ctx context.Context, sessionID, userID uint, childName string) (models.SessionRegistration, error)
	Teachers(ctx context.Context) ([]models.Teacher, error)
}

type communityService struct {
	repo repository.CommunityRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewCommunityService constructs the community service.
func NewCommunityService(repo repository.CommunityRepository, logger zerolog.Logger) CommunityService {
	return &communityService{
		repo: repo,
		now:  time.Now,
		log:  logger.With().Str("component", "community_service").Logger(),
	}
}

func (s *communityService) UpcomingSessions(ctx context.Context) ([]models.HealthSession, error) {
	return s.repo.UpcomingSessions(ctx, s.now())
}

func (s *communityService) RegisterSession(ctx context.Context, sessionID, userID uint, childName string) (models.SessionRegistration, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SessionRegistration{}, ErrNotFound
		}
		return models.SessionRegistration{}, err
	}

	reg := models.SessionRegistration{
		SessionID: sessionID,
		UserID:    userID,
		ChildName: protocol.Sanitize(strings.TrimSpace(childName)),
	}
	if err := s.repo.Register(ctx, &reg); err != nil {
		return models.SessionRegistration{}, err
	}
	return reg, nil
}

func (s *communityService) Teachers(ctx context.Context) ([]models.Teacher, error) {
	return s.repo.ListTeachers(ctx)
}
