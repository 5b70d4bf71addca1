package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// setupTestDB opens a per-test in-memory database. TranslateError matches the
// production connection so unique violations surface as gorm.ErrDuplicatedKey.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Conversation{},
		&models.ConversationMember{},
		&models.Message{},
		&models.Doctor{},
		&models.ScheduleWindow{},
		&models.Appointment{},
		&models.HealthSession{},
		&models.SessionRegistration{},
		&models.Teacher{},
	))
	return db
}
