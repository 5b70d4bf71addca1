package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
	"github.com/perentalassist/hub/internal/repository"
)

// DoctorProfile is a doctor with their weekly schedule windows.
type DoctorProfile struct {
	Doctor  models.Doctor
	Windows []models.ScheduleWindow
}

// DoctorService reads the doctor directory.
type DoctorService interface {
	List(ctx context.Context) ([]models.Doctor, error)
	Profile(ctx context.Context, id uint) (DoctorProfile, error)
	FindByUser(ctx context.Context, userID uint) (models.Doctor, error)
}

type doctorService struct {
	repo repository.DoctorRepository
	log  zerolog.Logger
}

// NewDoctorService constructs the doctor service.
func NewDoctorService(repo repository.DoctorRepository, logger zerolog.Logger) DoctorService {
	return &doctorService{
		repo: repo,
		log:  logger.With().Str("component", "doctor_service").Logger(),
	}
}

func (s *doctorService) List(ctx context.Context) ([]models.Doctor, error) {
	return s.repo.List(ctx)
}

func (s *doctorService) Profile(ctx context.Context, id uint) (DoctorProfile, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DoctorProfile{}, ErrNotFound
		}
		return DoctorProfile{}, err
	}

	windows, err := s.repo.Windows(ctx, id)
	if err != nil {
		return DoctorProfile{}, err
	}

	return DoctorProfile{Doctor: doctor, Windows: windows}, nil
}

func (s *doctorService) FindByUser(ctx context.Context, userID uint) (models.Doctor, error) {
	doctor, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Doctor{}, ErrNotFound
		}
		return models.Doctor{}, err
	}
	return doctor, nil
}
