package service

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
)

func setupServiceDB(t *testing.T) *gorm.DB {
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

// stubPusher records push lines per scope, safe for concurrent use.
type stubPusher struct {
	mu       sync.Mutex
	chat     []string
	comments []string
	user     []string
}

func (p *stubPusher) BroadcastChat(convID uint, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chat = append(p.chat, line)
}

func (p *stubPusher) BroadcastComments(postID uint, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments = append(p.comments, line)
}

func (p *stubPusher) SendToUser(userID uint, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = append(p.user, line)
}

func (p *stubPusher) chatLines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.chat...)
}

func (p *stubPusher) commentLines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.comments...)
}

func (p *stubPusher) userLines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.user...)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
