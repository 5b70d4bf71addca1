package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

func TestAppointmentRepositoryRejectsDuplicateSlot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()

	start := time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC)
	first := models.Appointment{UserID: 1, DoctorID: 5, StartAt: start, EndAt: start.Add(30 * time.Minute)}
	require.NoError(t, repo.Create(ctx, &first))

	second := models.Appointment{UserID: 2, DoctorID: 5, StartAt: start, EndAt: start.Add(30 * time.Minute)}
	err := repo.Create(ctx, &second)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Same time with a different doctor is fine.
	other := models.Appointment{UserID: 2, DoctorID: 6, StartAt: start, EndAt: start.Add(30 * time.Minute)}
	require.NoError(t, repo.Create(ctx, &other))
}

func TestAppointmentRepositoryExistsAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()

	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	appt := models.Appointment{UserID: 1, DoctorID: 3, StartAt: start, EndAt: start.Add(30 * time.Minute)}
	require.NoError(t, repo.Create(ctx, &appt))

	taken, err := repo.ExistsAt(ctx, 3, start)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.ExistsAt(ctx, 3, start.Add(30*time.Minute))
	require.NoError(t, err)
	require.False(t, taken)
}

func TestAppointmentRepositoryStartsOn(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	inDay := day.Add(9*time.Hour + 30*time.Minute)
	lastSlot := day.Add(23*time.Hour + 30*time.Minute)
	nextDay := day.Add(24 * time.Hour)

	for i, start := range []time.Time{inDay, lastSlot, nextDay} {
		appt := models.Appointment{UserID: uint(i + 1), DoctorID: 4, StartAt: start, EndAt: start.Add(30 * time.Minute)}
		require.NoError(t, repo.Create(ctx, &appt))
	}

	starts, err := repo.StartsOn(ctx, 4, day.Add(13*time.Hour))
	require.NoError(t, err)
	require.Len(t, starts, 2, "only starts inside the day are returned")
}

func TestAppointmentRepositoryListByUserJoinsDoctorName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppointmentRepository(db)
	ctx := context.Background()

	doctor := models.Doctor{Name: "Dr. Rina", Specialty: "Pediatrics"}
	require.NoError(t, db.Create(&doctor).Error)

	start := time.Date(2026, 9, 8, 11, 0, 0, 0, time.UTC)
	appt := models.Appointment{UserID: 7, DoctorID: doctor.ID, StartAt: start, EndAt: start.Add(30 * time.Minute), VideoURL: "https://meet.example/x"}
	require.NoError(t, repo.Create(ctx, &appt))

	rows, err := repo.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Dr. Rina", rows[0].DoctorName)
	require.Equal(t, "https://meet.example/x", rows[0].VideoURL)

	rows, err = repo.ListByUser(ctx, 8)
	require.NoError(t, err)
	require.Empty(t, rows)
}
