// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"degentalk/logger"
	"degentalk/models"

	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB, log *logger.Logger) error {
	log.Info("Running database migrations")

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserPathXP{},
		&models.UserEmoji{},
		&models.EmojiUnlockRule{},
		&models.AchievementDefinition{},
		&models.UserAchievement{},
		&models.ReputationAchievement{},
		&models.UserReputationLog{},
		&models.ActionValueSetting{},
		&models.XPAdjustmentLog{},
		&models.CurrencyTransaction{},
		&models.Thread{},
		&models.Post{},
		&models.Reaction{},
		&models.Tip{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to run core migrations: %w", err)
	}

	if err := createCoreIndexes(db); err != nil {
		return err
	}

	log.Info("All migrations completed successfully")
	return nil
}

// createCoreIndexes creates indexes AutoMigrate cannot express
func createCoreIndexes(db *gorm.DB) error {
	stmts := []string{
		// Leaderboards
		"CREATE INDEX IF NOT EXISTS idx_users_level ON users(level DESC)",
		"CREATE INDEX IF NOT EXISTS idx_users_xp ON users(xp DESC)",

		// Progress strategies
		"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_threads_user_created ON threads(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_tips_from_created ON tips(from_user_id, created_at)",

		// Dispatcher scan
		"CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(status, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
