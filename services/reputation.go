// services/reputation.go - Threshold reputation achievements backed by an append-only ledger
package services

import (
	"context"
	"errors"
	"fmt"

	"degentalk/logger"
	"degentalk/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errAlreadyGranted = errors.New("reputation achievement already granted")

type ReputationService struct {
	db       *gorm.DB
	log      *logger.Logger
	notifier *Notifier
}

func NewReputationService(db *gorm.DB, log *logger.Logger, notifier *Notifier) *ReputationService {
	return &ReputationService{db: db, log: log.With("service", "ReputationService"), notifier: notifier}
}

// CheckAchievements grants every enabled reputation achievement of
// triggerType whose criteria value is covered by triggerValue. A nil
// triggerValue counts as 0, so nothing is granted without an explicit value.
func (s *ReputationService) CheckAchievements(ctx context.Context, userID uint, triggerType string, triggerValue *int) ([]models.ReputationAchievement, error) {
	granted := []models.ReputationAchievement{}
	value := 0
	if triggerValue != nil {
		value = *triggerValue
	}

	var candidates []models.ReputationAchievement
	if err := s.db.WithContext(ctx).
		Where("enabled = ? AND criteria_type = ?", true, triggerType).
		Order("criteria_value").
		Find(&candidates).Error; err != nil {
		return granted, fmt.Errorf("failed to load reputation achievements: %w", err)
	}
	if len(candidates) == 0 {
		return granted, nil
	}

	var earnedIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.UserReputationLog{}).
		Where("user_id = ? AND achievement_id IS NOT NULL", userID).
		Pluck("achievement_id", &earnedIDs).Error; err != nil {
		return granted, fmt.Errorf("failed to load reputation history: %w", err)
	}
	earned := make(map[uint]bool, len(earnedIDs))
	for _, id := range earnedIDs {
		earned[id] = true
	}

	for _, a := range candidates {
		if earned[a.ID] || a.CriteriaValue > value {
			continue
		}
		id := a.ID
		ok, err := s.GrantReputation(ctx, userID, a.ReputationReward, "Achievement: "+a.Name, &id)
		if err != nil {
			return granted, err
		}
		if ok {
			granted = append(granted, a)
		}
	}
	return granted, nil
}

// GrantReputation is the only writer of users.reputation. It appends a ledger
// row and increments the counter in one transaction. amount <= 0 is a no-op.
// With an achievementID the grant happens at most once per user.
func (s *ReputationService) GrantReputation(ctx context.Context, userID uint, amount int, reason string, achievementID *uint) (bool, error) {
	if amount <= 0 {
		return false, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &models.UserReputationLog{
			UserID:           userID,
			AchievementID:    achievementID,
			ReputationEarned: amount,
			Reason:           reason,
		}
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
		if insert.Error != nil {
			return fmt.Errorf("failed to append reputation log: %w", insert.Error)
		}
		if insert.RowsAffected == 0 {
			return errAlreadyGranted
		}

		update := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", amount))
		if update.Error != nil {
			return fmt.Errorf("failed to add reputation: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return s.notifier.Enqueue(tx, userID, models.NotificationReputation,
			fmt.Sprintf("+%d reputation", amount),
			reason,
			map[string]any{"amount": amount, "achievement_id": achievementID})
	})
	if errors.Is(err, errAlreadyGranted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	reputationGranted.Add(float64(amount))
	s.log.Info("reputation granted", "user_id", userID, "amount", amount, "reason", reason)
	return true, nil
}

// LedgerBalance sums a user's reputation ledger.
func (s *ReputationService) LedgerBalance(ctx context.Context, userID uint) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.UserReputationLog{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(reputation_earned), 0)").
		Scan(&total).Error
	return int(total), err
}

// ReconcileResult reports the drift found between the counter and the ledger.
type ReconcileResult struct {
	UserID    uint `json:"user_id"`
	Stored    int  `json:"stored"`
	Ledger    int  `json:"ledger"`
	Drift     int  `json:"drift"`
	Corrected bool `json:"corrected"`
}

// ReconcileReputation makes users.reputation equal the ledger sum again.
func (s *ReputationService) ReconcileReputation(ctx context.Context, userID uint) (*ReconcileResult, error) {
	res := &ReconcileResult{UserID: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id", "reputation").First(&user, userID).Error; err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		res.Stored = user.Reputation

		var total int64
		if err := tx.Model(&models.UserReputationLog{}).
			Where("user_id = ?", userID).
			Select("COALESCE(SUM(reputation_earned), 0)").
			Scan(&total).Error; err != nil {
			return err
		}
		res.Ledger = int(total)
		res.Drift = res.Stored - res.Ledger
		if res.Drift == 0 {
			return nil
		}

		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("reputation", gorm.Expr(
				"(SELECT COALESCE(SUM(reputation_earned), 0) FROM user_reputation_logs WHERE user_id = ?)", userID)).Error; err != nil {
			return fmt.Errorf("failed to correct reputation: %w", err)
		}
		res.Corrected = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Corrected {
		s.log.Warn("reputation drift corrected", "user_id", userID, "stored", res.Stored, "ledger", res.Ledger)
	}
	return res, nil
}
