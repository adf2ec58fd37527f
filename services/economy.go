// services/economy.go - DGT tips and shop purchases
package services

import (
	"context"
	"fmt"
	"strings"

	"degentalk/logger"
	"degentalk/models"

	"gorm.io/gorm"
)

type EconomyService struct {
	db           *gorm.DB
	log          *logger.Logger
	achievements *AchievementService
}

func NewEconomyService(db *gorm.DB, log *logger.Logger, achievements *AchievementService) *EconomyService {
	return &EconomyService{db: db, log: log.With("service", "EconomyService"), achievements: achievements}
}

// creditDGTTx adds amount to the user's balance and records the movement.
func creditDGTTx(tx *gorm.DB, userID uint, amount int64, typ models.CurrencyTransactionType, ref string) (*models.CurrencyTransaction, error) {
	update := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("dgt_balance", gorm.Expr("dgt_balance + ?", amount))
	if update.Error != nil {
		return nil, fmt.Errorf("failed to credit DGT: %w", update.Error)
	}
	if update.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	record := &models.CurrencyTransaction{UserID: userID, Amount: amount, Type: typ, Reference: ref}
	if err := tx.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to record DGT credit: %w", err)
	}
	return record, nil
}

// debitDGTTx removes amount only if the balance covers it.
func debitDGTTx(tx *gorm.DB, userID uint, amount int64, typ models.CurrencyTransactionType, ref string) (*models.CurrencyTransaction, error) {
	update := tx.Model(&models.User{}).Where("id = ? AND dgt_balance >= ?", userID, amount).
		UpdateColumn("dgt_balance", gorm.Expr("dgt_balance - ?", amount))
	if update.Error != nil {
		return nil, fmt.Errorf("failed to debit DGT: %w", update.Error)
	}
	if update.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrUserNotFound
		}
		return nil, ErrInsufficientFunds
	}
	record := &models.CurrencyTransaction{UserID: userID, Amount: -amount, Type: typ, Reference: ref}
	if err := tx.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to record DGT debit: %w", err)
	}
	return record, nil
}

// Balance returns the user's DGT balance.
func (s *EconomyService) Balance(ctx context.Context, userID uint) (int64, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "dgt_balance").First(&user, userID).Error; err != nil {
		return 0, mapNotFound(err, ErrUserNotFound)
	}
	return user.DGTBalance, nil
}

// Tip moves amount DGT from one user to another and then evaluates
// tips_given for the sender.
func (s *EconomyService) Tip(ctx context.Context, fromUserID, toUserID uint, amount int64) (*models.Tip, []models.AchievementDefinition, error) {
	if amount <= 0 {
		return nil, nil, invalidInput("tip amount must be positive")
	}
	if fromUserID == toUserID {
		return nil, nil, invalidInput("cannot tip yourself")
	}

	tip := &models.Tip{FromUserID: fromUserID, ToUserID: toUserID, Amount: amount}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tip).Error; err != nil {
			return fmt.Errorf("failed to record tip: %w", err)
		}
		ref := fmt.Sprintf("tip:%d", tip.ID)
		if _, err := debitDGTTx(tx, fromUserID, amount, models.TxTipSent, ref); err != nil {
			return err
		}
		_, err := creditDGTTx(tx, toUserID, amount, models.TxTipReceived, ref)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	awarded, err := s.achievements.CheckAndAwardAchievements(ctx, fromUserID, string(ActionTipsGiven), map[string]any{"tip_id": tip.ID})
	if err != nil {
		return tip, awarded, fmt.Errorf("%w: %w", ErrTriggerFailed, err)
	}
	return tip, awarded, nil
}

// Purchase debits price DGT for itemKey and evaluates purchases_made.
func (s *EconomyService) Purchase(ctx context.Context, userID uint, itemKey string, price int64) (*models.CurrencyTransaction, []models.AchievementDefinition, error) {
	itemKey = strings.TrimSpace(itemKey)
	if itemKey == "" {
		return nil, nil, invalidInput("item_key is required")
	}
	if price <= 0 {
		return nil, nil, invalidInput("price must be positive")
	}

	var record *models.CurrencyTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = debitDGTTx(tx, userID, price, models.TxPurchase, "item:"+itemKey)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	awarded, err := s.achievements.CheckAndAwardAchievements(ctx, userID, string(ActionPurchasesMade), map[string]any{"item_key": itemKey})
	if err != nil {
		return record, awarded, fmt.Errorf("%w: %w", ErrTriggerFailed, err)
	}
	return record, awarded, nil
}
