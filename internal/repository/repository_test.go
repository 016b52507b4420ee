package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chartqa/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Session{}, &model.Image{}, &model.Conversation{}))
	return db
}

func TestUserRepositoryDuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(&model.User{Username: "zjr"}))
	err := repo.Create(&model.User{Username: "zjr"})
	assert.Error(t, err, "second registration of the same name must fail")

	var count int64
	require.NoError(t, db.Model(&model.User{}).Where("username = ?", "zjr").Count(&count).Error)
	assert.EqualValues(t, 1, count, "exactly one row for the name after the duplicate attempt")
}

func TestUserRepositoryGetOrCreateByUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	first, err := repo.GetOrCreateByUsername("default_user")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.GetOrCreateByUsername("default_user")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSessionRepositoryListOrder(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)

	user := &model.User{Username: "alice"}
	require.NoError(t, users.Create(user))

	older := &model.Session{UserID: user.ID, Name: "older", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &model.Session{UserID: user.ID, Name: "newer", CreatedAt: time.Now()}
	require.NoError(t, sessions.Create(older))
	require.NoError(t, sessions.Create(newer))

	got, err := sessions.ListByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Name, "most recently created session first")
	assert.Equal(t, "older", got[1].Name)
}

func TestConversationRepositoryListOldestFirst(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	turns := NewConversationRepository(db)

	user := &model.User{Username: "bob"}
	require.NoError(t, users.Create(user))
	session := &model.Session{UserID: user.ID, Name: "s"}
	require.NoError(t, sessions.Create(session))

	base := time.Now().Add(-time.Minute)
	for i, q := range []string{"q1", "q2", "q3"} {
		require.NoError(t, turns.Create(&model.Conversation{
			SessionID: session.ID,
			Question:  q,
			Answer:    "a",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := turns.ListBySessionID(session.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "q1", got[0].Question)
	assert.Equal(t, "q3", got[2].Question)
}

func TestConversationRepositoryLimitKeepsNewestTurns(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	turns := NewConversationRepository(db)

	user := &model.User{Username: "erin"}
	require.NoError(t, users.Create(user))
	session := &model.Session{UserID: user.ID, Name: "s"}
	require.NoError(t, sessions.Create(session))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, turns.Create(&model.Conversation{
			SessionID: session.ID,
			Question:  "q" + string(rune('1'+i)),
			Answer:    "a",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := turns.ListBySessionID(session.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q4", got[0].Question, "a capped listing drops the oldest turns")
	assert.Equal(t, "q5", got[1].Question, "the latest turn is always the last element")

	all, err := turns.ListBySessionID(session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5, "no cap without a positive limit")
}

func TestCascadeDeletes(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	images := NewImageRepository(db)
	turns := NewConversationRepository(db)

	user := &model.User{Username: "carol"}
	require.NoError(t, users.Create(user))
	session := &model.Session{UserID: user.ID, Name: "s"}
	require.NoError(t, sessions.Create(session))
	require.NoError(t, images.Create(&model.Image{SessionID: session.ID, Path: "uploads/x.png"}))
	require.NoError(t, turns.Create(&model.Conversation{SessionID: session.ID, Question: "q", Answer: "a"}))

	require.NoError(t, users.DeleteByID(user.ID))

	var sessionCount, imageCount, turnCount int64
	require.NoError(t, db.Model(&model.Session{}).Count(&sessionCount).Error)
	require.NoError(t, db.Model(&model.Image{}).Count(&imageCount).Error)
	require.NoError(t, db.Model(&model.Conversation{}).Count(&turnCount).Error)
	assert.Zero(t, sessionCount, "deleting a user removes its sessions")
	assert.Zero(t, imageCount, "deleting a session removes its images")
	assert.Zero(t, turnCount, "deleting a session removes its turns")
}

func TestSessionDeleteCascadesOnly(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	images := NewImageRepository(db)

	user := &model.User{Username: "dave"}
	require.NoError(t, users.Create(user))

	keep := &model.Session{UserID: user.ID, Name: "keep"}
	drop := &model.Session{UserID: user.ID, Name: "drop"}
	require.NoError(t, sessions.Create(keep))
	require.NoError(t, sessions.Create(drop))
	require.NoError(t, images.Create(&model.Image{SessionID: keep.ID, Path: "uploads/keep.png"}))
	require.NoError(t, images.Create(&model.Image{SessionID: drop.ID, Path: "uploads/drop.png"}))

	require.NoError(t, sessions.DeleteByIDAndUserID(drop.ID, user.ID))

	remaining, err := images.ListBySessionID(keep.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "sibling session's images survive")

	gone, err := images.ListBySessionID(drop.ID)
	require.NoError(t, err)
	assert.Empty(t, gone)
}
