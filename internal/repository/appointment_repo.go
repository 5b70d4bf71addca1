package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// AppointmentRow is an appointment joined with the doctor's name.
type AppointmentRow struct {
	ID         uint
	DoctorName string
	StartAt    time.Time
	EndAt      time.Time
	VideoURL   string
}

// AppointmentRepository persists confirmed bookings. Create surfaces
// gorm.ErrDuplicatedKey when the (doctor_id, start_at) unique index rejects a
// concurrent booking of the same slot.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	SetVideoURL(ctx context.Context, id uint, url string) error
	ExistsAt(ctx context.Context, doctorID uint, start time.Time) (bool, error)
	StartsOn(ctx context.Context, doctorID uint, day time.Time) ([]time.Time, error)
	ListByUser(ctx context.Context, userID uint) ([]AppointmentRow, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository constructs an appointment repository backed by GORM.
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	return r.db.WithContext(ctx).Create(appt).Error
}

func (r *appointmentRepository) SetVideoURL(ctx context.Context, id uint, url string) error {
	return r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("video_url", url).Error
}

func (r *appointmentRepository) ExistsAt(ctx context.Context, doctorID uint, start time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("doctor_id = ? AND start_at = ?", doctorID, start).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *appointmentRepository) StartsOn(ctx context.Context, doctorID uint, day time.Time) ([]time.Time, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND start_at >= ? AND start_at < ?", doctorID, from, to).
		Order("start_at ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(appts))
	for _, a := range appts {
		starts = append(starts, a.StartAt)
	}
	return starts, nil
}

func (r *appointmentRepository) ListByUser(ctx context.Context, userID uint) ([]AppointmentRow, error) {
	var rows []AppointmentRow
	err := r.db.WithContext(ctx).
		Table("appointments").
		Select("appointments.id, doctors.name AS doctor_name, appointments.start_at, appointments.end_at, appointments.video_url").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Where("appointments.user_id = ?", userID).
		Order("appointments.start_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
