package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perentalassist/hub/internal/models"
	"github.com/perentalassist/hub/internal/repository"
)

func TestUpcomingSessionsSkipsPastEvents(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCommunityService(repository.NewCommunityRepository(db), testLogger()).(*communityService)

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	past := models.HealthSession{Name: "Old seminar", Date: now.AddDate(0, 0, -7)}
	future := models.HealthSession{Name: "Nutrition talk", Date: now.AddDate(0, 0, 7), StartTime: "10:00", EndTime: "12:00", Location: "Hall A"}
	require.NoError(t, db.Create(&past).Error)
	require.NoError(t, db.Create(&future).Error)

	sessions, err := svc.UpcomingSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "Nutrition talk", sessions[0].Name)
}

func TestRegisterSessionSanitizesChildName(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCommunityService(repository.NewCommunityRepository(db), testLogger())

	session := models.HealthSession{Name: "Vaccination day", Date: time.Now().AddDate(0, 1, 0)}
	require.NoError(t, db.Create(&session).Error)

	reg, err := svc.RegisterSession(context.Background(), session.ID, 7, " Budi|Jr ")
	require.NoError(t, err)
	require.Equal(t, "Budi Jr", reg.ChildName)

	_, err = svc.RegisterSession(context.Background(), 999, 7, "Budi")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTeachersListsDirectory(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCommunityService(repository.NewCommunityRepository(db), testLogger())

	require.NoError(t, db.Create(&models.Teacher{Name: "Pak Budi", Subject: "Therapy", School: "SLB 1"}).Error)

	teachers, err := svc.Teachers(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	require.Equal(t, "Pak Budi", teachers[0].Name)
}
