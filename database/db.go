// database/db.go - Database Connection (PostgreSQL)
package database

import (
	"fmt"
	"time"

	"degentalk/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB opens the PostgreSQL connection, configures the pool and runs migrations.
func InitDB(dsn string, production bool, log *logger.Logger) (*gorm.DB, error) {
	level := gormLogger.Info
	if production {
		level = gormLogger.Warn
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("PostgreSQL database connected")

	if err := RunMigrations(conn, log); err != nil {
		return nil, err
	}

	db = conn
	return db, nil
}

// CloseDB closes the database connection
func CloseDB() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
