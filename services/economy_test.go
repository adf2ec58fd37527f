package services

import (
	"context"
	"testing"

	"degentalk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func fund(t *testing.T, db *gorm.DB, userID uint, amount int64) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).Update("dgt_balance", amount).Error)
}

func TestTipMovesBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	from := createUser(t, e.DB, "whale")
	to := createUser(t, e.DB, "shrimp")
	fund(t, e.DB, from.ID, 100)

	tip, awarded, err := e.Economy.Tip(ctx, from.ID, to.ID, 30)
	require.NoError(t, err)
	assert.NotZero(t, tip.ID)
	assert.Empty(t, awarded)

	assert.EqualValues(t, 70, reloadUser(t, e.DB, from.ID).DGTBalance)
	assert.EqualValues(t, 30, reloadUser(t, e.DB, to.ID).DGTBalance)

	var txs []models.CurrencyTransaction
	require.NoError(t, e.DB.Order("amount").Find(&txs).Error)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxTipSent, txs[0].Type)
	assert.EqualValues(t, -30, txs[0].Amount)
	assert.Equal(t, models.TxTipReceived, txs[1].Type)
}

func TestTipInsufficientFundsChangesNothing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	from := createUser(t, e.DB, "broke")
	to := createUser(t, e.DB, "hopeful")
	fund(t, e.DB, from.ID, 5)

	_, _, err := e.Economy.Tip(ctx, from.ID, to.ID, 6)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.EqualValues(t, 5, reloadUser(t, e.DB, from.ID).DGTBalance)
	assert.Zero(t, reloadUser(t, e.DB, to.ID).DGTBalance)

	var tips int64
	require.NoError(t, e.DB.Model(&models.Tip{}).Count(&tips).Error)
	assert.Zero(t, tips)
}

func TestTipValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "solo")
	fund(t, e.DB, u.ID, 50)

	_, _, err := e.Economy.Tip(ctx, u.ID, u.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = e.Economy.Tip(ctx, u.ID, 999, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = e.Economy.Tip(ctx, u.ID, 999, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.EqualValues(t, 50, reloadUser(t, e.DB, u.ID).DGTBalance)
}

func TestGenerousTipperAfterTenTips(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	from := createUser(t, e.DB, "generous")
	to := createUser(t, e.DB, "lucky")
	fund(t, e.DB, from.ID, 1000)

	var last []models.AchievementDefinition
	for i := 0; i < 10; i++ {
		_, awarded, err := e.Economy.Tip(ctx, from.ID, to.ID, 1)
		require.NoError(t, err)
		last = awarded
	}
	assert.Equal(t, []string{"Generous Tipper"}, names(last))
	assert.EqualValues(t, 1000-10+75, reloadUser(t, e.DB, from.ID).DGTBalance)
}

func TestPurchase(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	u := createUser(t, e.DB, "shopper")
	fund(t, e.DB, u.ID, 40)

	record, _, err := e.Economy.Purchase(ctx, u.ID, "frame_gold", 25)
	require.NoError(t, err)
	assert.EqualValues(t, -25, record.Amount)
	assert.Equal(t, "item:frame_gold", record.Reference)

	balance, err := e.Economy.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 15, balance)

	_, _, err = e.Economy.Purchase(ctx, u.ID, "frame_gold", 25)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	purchases, err := countPurchases(e.DB, u.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, purchases)
}
