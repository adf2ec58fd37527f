package services

import (
	"context"
	"testing"

	"degentalk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplierForPathXP(t *testing.T) {
	cases := []struct {
		xp   int
		want float64
	}{
		{0, 1},
		{999, 1},
		{1000, 1.2},
		{2499, 1.2},
		{2500, 1.3},
		{4999, 1.3},
		{5000, 1.5},
		{50000, 1.5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MultiplierForPathXP(tc.xp), "path xp %d", tc.xp)
	}
}

func TestLevelCurve(t *testing.T) {
	assert.Equal(t, 0, XPForLevel(1))
	assert.Equal(t, 282, XPForLevel(2))
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(281))
	assert.Equal(t, 2, LevelForXP(282))
	assert.Equal(t, 10, LevelForXP(XPForLevel(10)))
	assert.Equal(t, 9, LevelForXP(XPForLevel(10)-1))
}

func TestAddXPFlipsPathMultiplier(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "trader")
	require.NoError(t, e.DB.Create(&models.UserPathXP{UserID: u.ID, Path: "trading", XP: 950, Multiplier: 1}).Error)

	res, err := e.XP.AddXP(ctx, u.ID, 100, XPOptions{Path: "trading", Reason: "test"})
	require.NoError(t, err)
	assert.Equal(t, 100, res.PathDelta)
	assert.Equal(t, 1050, res.PathXP)
	require.Len(t, res.MultiplierChanges, 1)
	assert.Equal(t, 1.2, res.MultiplierChanges[0].NewMultiplier)

	var row models.UserPathXP
	require.NoError(t, e.DB.Where("user_id = ? AND path = ?", u.ID, "trading").First(&row).Error)
	assert.Equal(t, 1050, row.XP)
	assert.Equal(t, 1.2, row.Multiplier)
	assert.Equal(t, 100, reloadUser(t, e.DB, u.ID).XP)
	assert.EqualValues(t, 1, countNotifications(t, e.DB, u.ID, models.NotificationMultiplierIncrease))

	// chart_up needs 500 trading XP, diamond_hands needs 2500.
	assert.Equal(t, []string{"chart_up"}, res.UnlockedEmojis)
	assert.EqualValues(t, 1, countNotifications(t, e.DB, u.ID, models.NotificationEmojiUnlock))

	// A second grant does not unlock or notify again.
	res, err = e.XP.AddXP(ctx, u.ID, 10, XPOptions{Path: "trading"})
	require.NoError(t, err)
	assert.Empty(t, res.UnlockedEmojis)
	assert.Empty(t, res.MultiplierChanges)
	assert.EqualValues(t, 1, countNotifications(t, e.DB, u.ID, models.NotificationEmojiUnlock))
}

func TestAddXPScalesPathButNotGlobal(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "writer")
	require.NoError(t, e.DB.Create(&models.UserPathXP{UserID: u.ID, Path: "writing", XP: 2600, Multiplier: 1.3}).Error)

	res, err := e.XP.AddXP(context.Background(), u.ID, 10, XPOptions{Path: "writing"})
	require.NoError(t, err)
	assert.Equal(t, 13, res.PathDelta)
	assert.Equal(t, 2613, res.PathXP)
	assert.Equal(t, 10, reloadUser(t, e.DB, u.ID).XP)
}

func TestAddXPNonPositiveIsNoop(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "idle")

	for _, amount := range []int{0, -5} {
		res, err := e.XP.AddXP(context.Background(), u.ID, amount, XPOptions{Path: "trading"})
		require.NoError(t, err)
		assert.False(t, res.Applied)
	}
	assert.Equal(t, 0, reloadUser(t, e.DB, u.ID).XP)

	var paths int64
	require.NoError(t, e.DB.Model(&models.UserPathXP{}).Count(&paths).Error)
	assert.Zero(t, paths)

	var logs int64
	require.NoError(t, e.DB.Model(&models.XPAdjustmentLog{}).Count(&logs).Error)
	assert.Zero(t, logs)
}

func TestAddXPUnknownUser(t *testing.T) {
	e := newBareEngine(t)
	_, err := e.XP.AddXP(context.Background(), 4242, 10, XPOptions{})
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddXPLevelUpFiresTriggers(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "grinder")

	res, err := e.XP.AddXP(ctx, u.ID, XPForLevel(10), XPOptions{Reason: "test"})
	require.NoError(t, err)
	assert.True(t, res.LeveledUp())
	assert.Equal(t, 10, res.NewLevel)
	assert.EqualValues(t, 1, countNotifications(t, e.DB, u.ID, models.NotificationLevelUp))

	var earned []models.UserAchievement
	require.NoError(t, e.DB.Preload("Achievement").Where("user_id = ?", u.ID).Find(&earned).Error)
	got := map[string]bool{}
	for _, ua := range earned {
		got[ua.Achievement.Name] = true
	}
	assert.True(t, got["Level Up"])
	assert.True(t, got["XP Master"])
	assert.Len(t, earned, 2)

	// Reward XP is granted with triggers skipped, so the level moved but no
	// further evaluation ran for it.
	user := reloadUser(t, e.DB, u.ID)
	assert.Equal(t, XPForLevel(10)+1000+2000, user.XP)
	assert.Equal(t, LevelForXP(user.XP), user.Level)
	assert.EqualValues(t, 750, user.DGTBalance)
}

func TestLevelNeverDecreases(t *testing.T) {
	e := newBareEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "veteran")
	require.NoError(t, e.DB.Model(&models.User{}).Where("id = ?", u.ID).Update("level", 20).Error)

	res, err := e.XP.AddXP(ctx, u.ID, 500, XPOptions{})
	require.NoError(t, err)
	assert.False(t, res.LeveledUp())
	assert.Equal(t, 20, reloadUser(t, e.DB, u.ID).Level)
}

func TestRecalculateMultipliers(t *testing.T) {
	e := newBareEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "multi")
	require.NoError(t, e.DB.Create(&[]models.UserPathXP{
		{UserID: u.ID, Path: "trading", XP: 5200, Multiplier: 1},
		{UserID: u.ID, Path: "writing", XP: 100, Multiplier: 1},
	}).Error)

	changes, err := e.XP.RecalculateMultipliers(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "trading", changes[0].Path)
	assert.Equal(t, 1.5, changes[0].NewMultiplier)

	changes, err = e.XP.RecalculateMultipliers(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = e.XP.RecalculateMultipliers(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetProgression(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "summary")

	_, err := e.XP.AddXP(ctx, u.ID, 600, XPOptions{Path: "trading"})
	require.NoError(t, err)

	summary, err := e.XP.GetProgression(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 600, summary.XP)
	assert.Equal(t, 2, summary.Level)
	assert.Equal(t, XPForLevel(3), summary.XPForNextLevel)
	assert.Equal(t, XPForLevel(3)-600, summary.XPToNextLevel)
	require.Len(t, summary.Paths, 1)
	assert.Equal(t, 600, summary.Paths[0].XP)
	assert.Equal(t, []string{"chart_up"}, summary.Emojis)

	_, err = e.XP.GetProgression(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
