package services

import (
	"context"
	"testing"

	"degentalk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAchievementLeaderboardDenseRank(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	first := achievementByName(t, e.DB, "First Steps")
	starter := achievementByName(t, e.DB, "Thread Starter")

	alice := createUser(t, e.DB, "alice")
	bob := createUser(t, e.DB, "bob")
	carol := createUser(t, e.DB, "carol")
	dave := createUser(t, e.DB, "dave")
	createUser(t, e.DB, "nobody")

	earn := func(u *models.User, defs ...models.AchievementDefinition) {
		for _, d := range defs {
			require.NoError(t, e.DB.Create(&models.UserAchievement{UserID: u.ID, AchievementID: d.ID}).Error)
		}
	}
	earn(alice, first, starter)
	earn(bob, first, starter)
	earn(carol, starter)
	earn(dave, first)

	entries, err := e.Leaderboard.AchievementLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	ranks := map[string]int{}
	for _, entry := range entries {
		ranks[entry.Username] = entry.Rank
	}
	assert.Equal(t, map[string]int{"alice": 1, "bob": 1, "carol": 2, "dave": 3}, ranks)
	assert.Equal(t, 2, entries[0].AchievementCount)
	assert.Equal(t, 150, entries[0].TotalRewardXP)
	assert.Equal(t, 35, entries[0].TotalRewardPoints)

	limited, err := e.Leaderboard.AchievementLeaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestProgressionLeaderboard(t *testing.T) {
	e := newBareEngine(t)
	ctx := context.Background()
	a := createUser(t, e.DB, "a")
	b := createUser(t, e.DB, "b")
	require.NoError(t, e.DB.Model(&models.User{}).Where("id = ?", a.ID).Update("xp", 300).Error)
	require.NoError(t, e.DB.Model(&models.User{}).Where("id = ?", b.ID).Update("xp", 900).Error)

	entries, err := e.Leaderboard.ProgressionLeaderboard(ctx, "xp", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Username)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)

	_, err = e.Leaderboard.ProgressionLeaderboard(ctx, "wins", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
