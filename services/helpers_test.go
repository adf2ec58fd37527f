package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"degentalk/config"
	"degentalk/database"
	"degentalk/logger"
	"degentalk/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	// Every connection to ":memory:" is its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db, logger.Nop()))
	return db
}

// newTestEngine returns an engine over a fresh database with the default seeds.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(newTestDB(t), logger.Nop())
	seeds, err := config.DefaultSeeds()
	require.NoError(t, err)
	_, err = e.SeedDefaults(context.Background(), seeds)
	require.NoError(t, err)
	return e
}

// newBareEngine has no seed data.
func newBareEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(newTestDB(t), logger.Nop())
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, DisplayName: name, Level: 1}
	require.NoError(t, db.Create(u).Error)
	return u
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return u
}

func achievementByName(t *testing.T, db *gorm.DB, name string) models.AchievementDefinition {
	t.Helper()
	var def models.AchievementDefinition
	require.NoError(t, db.Where("name = ?", name).First(&def).Error)
	return def
}

func countNotifications(t *testing.T, db *gorm.DB, userID uint, typ models.NotificationType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ? AND type = ?", userID, typ).Count(&n).Error)
	return n
}

func createPosts(t *testing.T, db *gorm.DB, userID uint, n int) {
	t.Helper()
	thread := &models.Thread{UserID: userID, Title: fmt.Sprintf("thread for %d", userID)}
	require.NoError(t, db.Create(thread).Error)
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{ThreadID: thread.ID, UserID: userID, Body: "gm"}
	}
	if n > 0 {
		require.NoError(t, db.CreateInBatches(posts, 50).Error)
	}
}

func names(defs []models.AchievementDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}
