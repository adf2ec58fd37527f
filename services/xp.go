// services/xp.go - Global XP, per-path XP and path multipliers
package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"degentalk/logger"
	"degentalk/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// multiplierTiers is checked highest threshold first. Each tier replaces the
// previous one; bonuses never stack.
var multiplierTiers = []struct {
	threshold  int
	multiplier float64
}{
	{5000, 1.5},
	{2500, 1.3},
	{1000, 1.2},
}

// MultiplierForPathXP returns the path multiplier earned at pathXP.
func MultiplierForPathXP(pathXP int) float64 {
	for _, t := range multiplierTiers {
		if pathXP >= t.threshold {
			return t.multiplier
		}
	}
	return 1
}

// levelCost is the XP needed to go from level-1 to level.
func levelCost(level int) int {
	return int(100 * math.Pow(float64(level), 1.5))
}

// XPForLevel returns the cumulative global XP at which level is reached.
func XPForLevel(level int) int {
	total := 0
	for l := 2; l <= level; l++ {
		total += levelCost(l)
	}
	return total
}

// LevelForXP returns the highest level whose cumulative cost is covered by xp.
func LevelForXP(xp int) int {
	level, needed := 1, 0
	for {
		needed += levelCost(level + 1)
		if xp < needed {
			return level
		}
		level++
	}
}

// XPOptions tunes a single XP grant.
type XPOptions struct {
	Path   string
	Reason string
	// SkipTriggers suppresses post-commit achievement evaluation. Reward
	// grants set it so an award can never re-enter the evaluator.
	SkipTriggers bool
}

// PathMultiplierChange is one path whose tier moved during recalculation.
type PathMultiplierChange struct {
	Path          string  `json:"path"`
	PathXP        int     `json:"path_xp"`
	OldMultiplier float64 `json:"old_multiplier"`
	NewMultiplier float64 `json:"new_multiplier"`
}

// XPResult describes what a grant changed.
type XPResult struct {
	UserID            uint                   `json:"user_id"`
	Applied           bool                   `json:"applied"`
	Amount            int                    `json:"amount"`
	TotalXP           int                    `json:"total_xp"`
	OldLevel          int                    `json:"old_level"`
	NewLevel          int                    `json:"new_level"`
	Path              string                 `json:"path,omitempty"`
	PathDelta         int                    `json:"path_delta,omitempty"`
	PathXP            int                    `json:"path_xp,omitempty"`
	MultiplierChanges []PathMultiplierChange `json:"multiplier_changes,omitempty"`
	UnlockedEmojis    []string               `json:"unlocked_emojis,omitempty"`
}

// LeveledUp reports whether the grant raised the user's level.
func (r *XPResult) LeveledUp() bool {
	return r != nil && r.NewLevel > r.OldLevel
}

// AchievementTrigger is the evaluator entry point the ledger calls after a
// committed grant. AchievementService implements it.
type AchievementTrigger interface {
	CheckAndAwardAchievements(ctx context.Context, userID uint, action string, metadata map[string]any) ([]models.AchievementDefinition, error)
}

type XPService struct {
	db       *gorm.DB
	log      *logger.Logger
	notifier *Notifier
	trigger  AchievementTrigger
}

func NewXPService(db *gorm.DB, log *logger.Logger, notifier *Notifier) *XPService {
	return &XPService{db: db, log: log.With("service", "XPService"), notifier: notifier}
}

// SetAchievementTrigger wires the evaluator after construction; the two
// services depend on each other.
func (s *XPService) SetAchievementTrigger(t AchievementTrigger) {
	s.trigger = t
}

// AddXP grants amount global XP and, with opts.Path, path XP scaled by the
// path's current multiplier. amount <= 0 is a no-op.
func (s *XPService) AddXP(ctx context.Context, userID uint, amount int, opts XPOptions) (*XPResult, error) {
	if amount <= 0 {
		return &XPResult{UserID: userID}, nil
	}

	var res *XPResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.applyTx(tx, userID, amount, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordXPGranted(res)

	if !opts.SkipTriggers {
		if _, err := s.fireTriggers(ctx, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// applyTx performs the grant inside tx. Steps are ordered: global XP, level,
// path XP, multipliers, emoji unlocks. Each reads what the previous wrote.
func (s *XPService) applyTx(tx *gorm.DB, userID uint, amount int, opts XPOptions) (*XPResult, error) {
	res := &XPResult{UserID: userID, Path: opts.Path}
	if amount <= 0 {
		return res, nil
	}

	update := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("xp", gorm.Expr("xp + ?", amount))
	if update.Error != nil {
		return nil, fmt.Errorf("failed to add xp: %w", update.Error)
	}
	if update.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := tx.Select("id", "xp", "level").First(&user, userID).Error; err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	res.Applied = true
	res.Amount = amount
	res.TotalXP = user.XP
	res.OldLevel = user.Level
	res.NewLevel = user.Level

	entry := &models.XPAdjustmentLog{UserID: userID, Amount: amount, Path: opts.Path, Reason: opts.Reason}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to log xp: %w", err)
	}

	if newLevel := LevelForXP(user.XP); newLevel > user.Level {
		raised := tx.Model(&models.User{}).
			Where("id = ? AND level < ?", userID, newLevel).
			UpdateColumn("level", newLevel)
		if raised.Error != nil {
			return nil, fmt.Errorf("failed to update level: %w", raised.Error)
		}
		if raised.RowsAffected > 0 {
			res.NewLevel = newLevel
			if err := s.notifier.Enqueue(tx, userID, models.NotificationLevelUp,
				"Level up!",
				fmt.Sprintf("You reached level %d.", newLevel),
				map[string]any{"old_level": user.Level, "new_level": newLevel}); err != nil {
				return nil, err
			}
		}
	}

	if opts.Path != "" {
		if err := s.addPathXPTx(tx, res, amount); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (s *XPService) addPathXPTx(tx *gorm.DB, res *XPResult, amount int) error {
	row := models.UserPathXP{UserID: res.UserID, Path: res.Path, XP: 0, Multiplier: 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create path row: %w", err)
	}
	if err := tx.Where("user_id = ? AND path = ?", res.UserID, res.Path).First(&row).Error; err != nil {
		return fmt.Errorf("failed to load path row: %w", err)
	}

	multiplier := row.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	res.PathDelta = int(math.Floor(float64(amount) * multiplier))

	if err := tx.Model(&models.UserPathXP{}).Where("id = ?", row.ID).
		UpdateColumn("xp", gorm.Expr("xp + ?", res.PathDelta)).Error; err != nil {
		return fmt.Errorf("failed to add path xp: %w", err)
	}
	if err := tx.First(&row, row.ID).Error; err != nil {
		return fmt.Errorf("failed to reload path xp: %w", err)
	}
	res.PathXP = row.XP

	changes, err := s.recalculateMultipliersTx(tx, res.UserID)
	if err != nil {
		return err
	}
	res.MultiplierChanges = changes

	unlocked, err := s.checkEmojiUnlocksTx(tx, res.UserID, res.Path, res.PathXP)
	if err != nil {
		return err
	}
	res.UnlockedEmojis = unlocked
	return nil
}

// RecalculateMultipliers re-derives every path multiplier for the user and
// persists the ones that changed.
func (s *XPService) RecalculateMultipliers(ctx context.Context, userID uint) ([]PathMultiplierChange, error) {
	var changes []PathMultiplierChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrUserNotFound
		}
		var err error
		changes, err = s.recalculateMultipliersTx(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func (s *XPService) recalculateMultipliersTx(tx *gorm.DB, userID uint) ([]PathMultiplierChange, error) {
	var paths []models.UserPathXP
	if err := tx.Where("user_id = ?", userID).Order("path").Find(&paths).Error; err != nil {
		return nil, fmt.Errorf("failed to load paths: %w", err)
	}

	var changes []PathMultiplierChange
	for _, p := range paths {
		next := MultiplierForPathXP(p.XP)
		if next == p.Multiplier {
			continue
		}
		if err := tx.Model(&models.UserPathXP{}).Where("id = ?", p.ID).
			UpdateColumn("multiplier", next).Error; err != nil {
			return nil, fmt.Errorf("failed to update multiplier for %s: %w", p.Path, err)
		}
		change := PathMultiplierChange{Path: p.Path, PathXP: p.XP, OldMultiplier: p.Multiplier, NewMultiplier: next}
		changes = append(changes, change)

		if err := s.notifier.Enqueue(tx, userID, models.NotificationMultiplierIncrease,
			"Path multiplier increased",
			fmt.Sprintf("Your %s multiplier is now %.1fx.", p.Path, next),
			map[string]any{
				"path":           p.Path,
				"path_xp":        p.XP,
				"old_multiplier": p.Multiplier,
				"new_multiplier": next,
			}); err != nil {
			return nil, err
		}
		s.log.Info("path multiplier changed", "user_id", userID, "path", p.Path, "multiplier", next)
	}
	return changes, nil
}

// checkEmojiUnlocksTx grants every path_xp emoji on path whose threshold is
// covered by pathXP and that the user does not already own.
func (s *XPService) checkEmojiUnlocksTx(tx *gorm.DB, userID uint, path string, pathXP int) ([]string, error) {
	var rules []models.EmojiUnlockRule
	if err := tx.Where("unlock_type = ? AND path = ? AND required_path_xp <= ?", models.UnlockTypePathXP, path, pathXP).
		Order("required_path_xp").
		Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to load emoji rules: %w", err)
	}

	var unlocked []string
	for _, rule := range rules {
		grant := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserEmoji{UserID: userID, EmojiKey: rule.EmojiKey})
		if grant.Error != nil {
			return nil, fmt.Errorf("failed to unlock emoji %s: %w", rule.EmojiKey, grant.Error)
		}
		if grant.RowsAffected == 0 {
			continue
		}
		unlocked = append(unlocked, rule.EmojiKey)
		if err := s.notifier.Enqueue(tx, userID, models.NotificationEmojiUnlock,
			"New emoji unlocked",
			fmt.Sprintf("You unlocked :%s: on the %s path.", rule.EmojiKey, path),
			map[string]any{"emoji_key": rule.EmojiKey, "path": path, "required_path_xp": rule.RequiredPathXP}); err != nil {
			return nil, err
		}
	}
	return unlocked, nil
}

// fireTriggers runs xp_earned and, after a level-up, level_reached evaluation.
func (s *XPService) fireTriggers(ctx context.Context, res *XPResult) ([]models.AchievementDefinition, error) {
	if s.trigger == nil || res == nil || !res.Applied {
		return nil, nil
	}
	actions := []string{string(ActionXPEarned)}
	if res.LeveledUp() {
		actions = append(actions, string(ActionLevelReached))
	}

	var awarded []models.AchievementDefinition
	var errs []error
	for _, action := range actions {
		got, err := s.trigger.CheckAndAwardAchievements(ctx, res.UserID, action, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
			continue
		}
		awarded = append(awarded, got...)
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.log.Error("achievement trigger failed", "user_id", res.UserID, "error", err)
		return awarded, fmt.Errorf("%w: %w", ErrTriggerFailed, err)
	}
	return awarded, nil
}

// ProgressionSummary is a user's progression snapshot.
type ProgressionSummary struct {
	UserID         uint                `json:"user_id"`
	Level          int                 `json:"level"`
	XP             int                 `json:"xp"`
	XPForNextLevel int                 `json:"xp_for_next_level"`
	XPToNextLevel  int                 `json:"xp_to_next_level"`
	Clout          int                 `json:"clout"`
	Reputation     int                 `json:"reputation"`
	DGTBalance     int64               `json:"dgt_balance"`
	Paths          []models.UserPathXP `json:"paths"`
	Emojis         []string            `json:"emojis"`
}

func (s *XPService) GetProgression(ctx context.Context, userID uint) (*ProgressionSummary, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Paths", func(db *gorm.DB) *gorm.DB { return db.Order("path") }).
		Preload("Emojis", func(db *gorm.DB) *gorm.DB { return db.Order("unlocked_at") }).
		First(&user, userID).Error
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	next := XPForLevel(user.Level + 1)
	summary := &ProgressionSummary{
		UserID:         user.ID,
		Level:          user.Level,
		XP:             user.XP,
		XPForNextLevel: next,
		XPToNextLevel:  max(next-user.XP, 0),
		Clout:          user.Clout,
		Reputation:     user.Reputation,
		DGTBalance:     user.DGTBalance,
		Paths:          user.Paths,
		Emojis:         make([]string, 0, len(user.Emojis)),
	}
	if summary.Paths == nil {
		summary.Paths = []models.UserPathXP{}
	}
	for _, e := range user.Emojis {
		summary.Emojis = append(summary.Emojis, e.EmojiKey)
	}
	return summary, nil
}
