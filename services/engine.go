// services/engine.go - Wiring for the progression and rewards engine
package services

import (
	"context"
	"fmt"

	"degentalk/config"
	"degentalk/logger"
	"degentalk/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine bundles the services that make up the rewards engine.
type Engine struct {
	DB           *gorm.DB
	Notifier     *Notifier
	XP           *XPService
	ActionValues *ActionValueService
	Achievements *AchievementService
	Reputation   *ReputationService
	Leaderboard  *LeaderboardService
	Forum        *ForumService
	Economy      *EconomyService
}

func NewEngine(db *gorm.DB, log *logger.Logger) *Engine {
	notifier := NewNotifier(db, log)
	xp := NewXPService(db, log, notifier)
	values := NewActionValueService(db, log, xp)
	achievements := NewAchievementService(db, log, xp, notifier)
	xp.SetAchievementTrigger(achievements)
	reputation := NewReputationService(db, log, notifier)

	return &Engine{
		DB:           db,
		Notifier:     notifier,
		XP:           xp,
		ActionValues: values,
		Achievements: achievements,
		Reputation:   reputation,
		Leaderboard:  NewLeaderboardService(db, log),
		Forum:        NewForumService(db, log, xp, values, achievements, reputation),
		Economy:      NewEconomyService(db, log, achievements),
	}
}

// SeedSummary counts rows inserted by SeedDefaults.
type SeedSummary struct {
	Achievements           int `json:"achievements"`
	ActionValues           int `json:"action_values"`
	EmojiRules             int `json:"emoji_rules"`
	ReputationAchievements int `json:"reputation_achievements"`
}

// SeedDefaults inserts the starter data. Existing rows are left alone so
// admin edits survive restarts.
func (e *Engine) SeedDefaults(ctx context.Context, seeds *config.Seeds) (*SeedSummary, error) {
	summary := &SeedSummary{}
	var err error
	if summary.Achievements, err = e.Achievements.CreateDefaultAchievements(ctx, seeds.Achievements); err != nil {
		return nil, err
	}

	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ignore := clause.OnConflict{DoNothing: true}
		for _, v := range seeds.ActionValues {
			res := tx.Clauses(ignore).Create(&models.ActionValueSetting{ActionKey: v.ActionKey, XPValue: v.XPValue, CloutValue: v.CloutValue})
			if res.Error != nil {
				return fmt.Errorf("failed to seed action value %s: %w", v.ActionKey, res.Error)
			}
			summary.ActionValues += int(res.RowsAffected)
		}
		for _, r := range seeds.EmojiRules {
			res := tx.Clauses(ignore).Create(&models.EmojiUnlockRule{
				EmojiKey:       r.EmojiKey,
				UnlockType:     models.UnlockTypePathXP,
				Path:           r.Path,
				RequiredPathXP: r.RequiredPathXP,
			})
			if res.Error != nil {
				return fmt.Errorf("failed to seed emoji rule %s: %w", r.EmojiKey, res.Error)
			}
			summary.EmojiRules += int(res.RowsAffected)
		}
		for _, a := range seeds.ReputationAchievements {
			res := tx.Clauses(ignore).Create(&models.ReputationAchievement{
				AchievementKey:   a.Key,
				Name:             a.Name,
				CriteriaType:     a.CriteriaType,
				CriteriaValue:    a.CriteriaValue,
				ReputationReward: a.ReputationReward,
				Enabled:          true,
			})
			if res.Error != nil {
				return fmt.Errorf("failed to seed reputation achievement %s: %w", a.Key, res.Error)
			}
			summary.ReputationAchievements += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
