package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using
// the provided DSN. TranslateError is on so unique violations surface as
// gorm.ErrDuplicatedKey, which the signup and booking paths rely on.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every persisted entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
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
	)
}
