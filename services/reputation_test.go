package services

import (
	"context"
	"testing"

	"degentalk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestReputationThresholdGrantedOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "popular")

	granted, err := e.Reputation.CheckAchievements(ctx, u.ID, "likes_received", intPtr(99))
	require.NoError(t, err)
	assert.Empty(t, granted)

	granted, err = e.Reputation.CheckAchievements(ctx, u.ID, "likes_received", intPtr(100))
	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, "liked_100", granted[0].AchievementKey)

	granted, err = e.Reputation.CheckAchievements(ctx, u.ID, "likes_received", intPtr(100))
	require.NoError(t, err)
	assert.Empty(t, granted)

	user := reloadUser(t, e.DB, u.ID)
	assert.Equal(t, 50, user.Reputation)
	var logs int64
	require.NoError(t, e.DB.Model(&models.UserReputationLog{}).Where("user_id = ?", u.ID).Count(&logs).Error)
	assert.EqualValues(t, 1, logs)
}

func TestReputationMissingTriggerValueGrantsNothing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "silent")

	granted, err := e.Reputation.CheckAchievements(ctx, u.ID, "likes_received", nil)
	require.NoError(t, err)
	assert.Empty(t, granted)

	granted, err = e.Reputation.CheckAchievements(ctx, u.ID, "unknown_trigger", intPtr(1_000_000))
	require.NoError(t, err)
	assert.Empty(t, granted)
	assert.Zero(t, reloadUser(t, e.DB, u.ID).Reputation)
}

func TestReputationLedgerConsistency(t *testing.T) {
	e := newBareEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "ledger")

	for _, amount := range []int{10, -5, 0, 7, 3} {
		_, err := e.Reputation.GrantReputation(ctx, u.ID, amount, "manual", nil)
		require.NoError(t, err)
	}

	balance, err := e.Reputation.LedgerBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)
	assert.Equal(t, balance, reloadUser(t, e.DB, u.ID).Reputation)
}

func TestGrantReputationUnknownUserRollsBack(t *testing.T) {
	e := newBareEngine(t)
	ok, err := e.Reputation.GrantReputation(context.Background(), 31337, 10, "manual", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var logs int64
	require.NoError(t, e.DB.Model(&models.UserReputationLog{}).Count(&logs).Error)
	assert.Zero(t, logs)
}

func TestReconcileReputation(t *testing.T) {
	e := newBareEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "drifter")
	_, err := e.Reputation.GrantReputation(ctx, u.ID, 40, "manual", nil)
	require.NoError(t, err)

	res, err := e.Reputation.ReconcileReputation(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, res.Corrected)
	assert.Zero(t, res.Drift)

	require.NoError(t, e.DB.Model(&models.User{}).Where("id = ?", u.ID).Update("reputation", 999).Error)
	res, err = e.Reputation.ReconcileReputation(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, res.Corrected)
	assert.Equal(t, 959, res.Drift)
	assert.Equal(t, 40, reloadUser(t, e.DB, u.ID).Reputation)

	_, err = e.Reputation.ReconcileReputation(ctx, 5150)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
