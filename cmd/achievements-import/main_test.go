package main

import (
	"context"
	"testing"
	"time"

	"degentalk/database"
	"degentalk/logger"
	"degentalk/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sample = `[
  {"name": "Night Owl", "description": "Post 5 times in a day",
   "requirement": {"action": "posts_created", "target": 5, "timeframe": "daily"},
   "reward_xp": 40, "reward_points": 5},
  {"name": "Big Spender", "requirement": {"action": "purchases_made", "target": 3}, "reward_xp": 60}
]`

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs([]byte(sample))
	require.NoError(t, err)
	assert.Len(t, inputs, 2)

	_, err = parseInputs([]byte(`[{"name": "x", "requirement": {"action": "moon", "target": 1}}]`))
	assert.ErrorContains(t, err, "unknown action")

	_, err = parseInputs([]byte(`[{"name": "x", "requirement": {"action": "posts_created", "target": 1}},
		{"name": "x", "requirement": {"action": "posts_created", "target": 2}}]`))
	assert.ErrorContains(t, err, "duplicate name")
}

func TestImportSkipsExisting(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.RunMigrations(db, logger.Nop()))

	engine := services.NewEngine(db, logger.Nop())
	inputs, err := parseInputs([]byte(sample))
	require.NoError(t, err)

	created, skipped, err := importAchievements(context.Background(), engine.Achievements, inputs)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, skipped)

	created, skipped, err = importAchievements(context.Background(), engine.Achievements, inputs)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, skipped)
}
