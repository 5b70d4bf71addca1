package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// DoctorRepository reads the doctor directory and weekly schedules.
type DoctorRepository interface {
	List(ctx context.Context) ([]models.Doctor, error)
	Get(ctx context.Context, id uint) (models.Doctor, error)
	FindByUser(ctx context.Context, userID uint) (models.Doctor, error)
	Windows(ctx context.Context, doctorID uint) ([]models.ScheduleWindow, error)
	WindowsForDay(ctx context.Context, doctorID uint, dayOfWeek int) ([]models.ScheduleWindow, error)
}

type doctorRepository struct {
	db *gorm.DB
}

// NewDoctorRepository constructs a doctor repository backed by GORM.
func NewDoctorRepository(db *gorm.DB) DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) List(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *doctorRepository) Get(ctx context.Context, id uint) (models.Doctor, error) {
	var doctor models.Doctor
	if err := r.db.WithContext(ctx).First(&doctor, id).Error; err != nil {
		return models.Doctor{}, err
	}
	return doctor, nil
}

func (r *doctorRepository) FindByUser(ctx context.Context, userID uint) (models.Doctor, error) {
	var doctor models.Doctor
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&doctor).Error
	if err != nil {
		return models.Doctor{}, err
	}
	return doctor, nil
}

func (r *doctorRepository) Windows(ctx context.Context, doctorID uint) ([]models.ScheduleWindow, error) {
	var windows []models.ScheduleWindow
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("day_of_week ASC, start_time ASC").
		Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *doctorRepository) WindowsForDay(ctx context.Context, doctorID uint, dayOfWeek int) ([]models.ScheduleWindow, error) {
	var windows []models.ScheduleWindow
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", doctorID, dayOfWeek).
		Order("start_time ASC").
		Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}
