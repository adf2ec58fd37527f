// services/achievements.go - Achievement evaluation, awarding and admin CRUD
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"degentalk/config"
	"degentalk/logger"
	"degentalk/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	db       *gorm.DB
	log      *logger.Logger
	xp       *XPService
	notifier *Notifier
}

func NewAchievementService(db *gorm.DB, log *logger.Logger, xp *XPService, notifier *Notifier) *AchievementService {
	return &AchievementService{db: db, log: log.With("service", "AchievementService"), xp: xp, notifier: notifier}
}

// AchievementProgress is one row of a user's achievement page.
type AchievementProgress struct {
	Achievement        models.AchievementDefinition `json:"achievement"`
	Rarity             string                       `json:"rarity"`
	Category           string                       `json:"category"`
	CurrentProgress    int                          `json:"current_progress"`
	Target             int                          `json:"target"`
	ProgressPercentage float64                      `json:"progress_percentage"`
	IsCompleted        bool                         `json:"is_completed"`
	EarnedAt           *time.Time                   `json:"earned_at,omitempty"`
}

func progressPercentage(current, target int) float64 {
	if target <= 0 || current <= 0 {
		return 0
	}
	pct := float64(current) / float64(target) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func (s *AchievementService) ensureUser(ctx context.Context, userID uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// earnedAt maps achievement id to when the user earned it.
func (s *AchievementService) earnedAt(ctx context.Context, userID uint) (map[uint]time.Time, error) {
	var rows []models.UserAchievement
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load earned achievements: %w", err)
	}
	out := make(map[uint]time.Time, len(rows))
	for _, r := range rows {
		out[r.AchievementID] = r.EarnedAt
	}
	return out, nil
}

// GetUserAchievementProgress reports progress on the given achievements, or
// on every active one when ids is empty, sorted by percentage descending.
func (s *AchievementService) GetUserAchievementProgress(ctx context.Context, userID uint, ids []uint) ([]AchievementProgress, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	var defs []models.AchievementDefinition
	q := s.db.WithContext(ctx).Order("id")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	} else {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	earned, err := s.earnedAt(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]AchievementProgress, 0, len(defs))
	for i := range defs {
		def := defs[i]
		req := def.Requirement.Data()
		p := AchievementProgress{
			Achievement: def,
			Rarity:      rarityOfDefinition(&def),
			Category:    categoryOfDefinition(&def),
			Target:      req.Target,
		}
		if at, ok := earned[def.ID]; ok {
			p.CurrentProgress = req.Target
			p.ProgressPercentage = 100
			p.IsCompleted = true
			p.EarnedAt = &at
		} else {
			current, err := s.measureProgress(ctx, userID, req)
			if err != nil {
				return nil, fmt.Errorf("failed to measure %q: %w", def.Name, err)
			}
			p.CurrentProgress = current
			p.ProgressPercentage = progressPercentage(current, req.Target)
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProgressPercentage > out[j].ProgressPercentage
	})
	return out, nil
}

// CheckAndAwardAchievements evaluates every active achievement for action and
// awards the ones the user now qualifies for. An empty result is normal.
func (s *AchievementService) CheckAndAwardAchievements(ctx context.Context, userID uint, action string, metadata map[string]any) ([]models.AchievementDefinition, error) {
	awarded := []models.AchievementDefinition{}
	if err := s.ensureUser(ctx, userID); err != nil {
		return awarded, err
	}

	var defs []models.AchievementDefinition
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&defs).Error; err != nil {
		return awarded, fmt.Errorf("failed to load achievements: %w", err)
	}

	earned, err := s.earnedAt(ctx, userID)
	if err != nil {
		return awarded, err
	}

	for _, def := range defs {
		req := def.Requirement.Data()
		if req.Action != action {
			continue
		}
		if _, ok := earned[def.ID]; ok {
			continue
		}
		current, err := s.measureProgress(ctx, userID, req)
		if err != nil {
			return awarded, fmt.Errorf("failed to measure %q: %w", def.Name, err)
		}
		if req.Target <= 0 || current < req.Target {
			continue
		}
		ok, err := s.AwardAchievement(ctx, userID, def.ID)
		if err != nil {
			return awarded, err
		}
		if ok {
			awarded = append(awarded, def)
		}
	}

	if len(awarded) > 0 {
		s.log.Info("achievements awarded", "user_id", userID, "action", action, "count", len(awarded), "metadata", metadata)
	}
	return awarded, nil
}

// AwardAchievement records the achievement and applies its rewards in one
// transaction. A second call for the same pair is a no-op that returns false.
func (s *AchievementService) AwardAchievement(ctx context.Context, userID, achievementID uint) (bool, error) {
	var def models.AchievementDefinition
	if err := s.db.WithContext(ctx).First(&def, achievementID).Error; err != nil {
		return false, mapNotFound(err, ErrAchievementNotFound)
	}

	awarded := false
	var xpRes *XPResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrUserNotFound
		}

		record := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserAchievement{
			UserID:        userID,
			AchievementID: def.ID,
			EarnedAt:      time.Now().UTC(),
		})
		if record.Error != nil {
			return fmt.Errorf("failed to record achievement: %w", record.Error)
		}
		if record.RowsAffected == 0 {
			return nil
		}
		awarded = true

		if def.RewardXP > 0 {
			opts := XPOptions{Reason: "achievement:" + def.Name, SkipTriggers: true}
			var err error
			if xpRes, err = s.xp.applyTx(tx, userID, def.RewardXP, opts); err != nil {
				return err
			}
		}
		if def.RewardPoints > 0 {
			ref := fmt.Sprintf("achievement:%d", def.ID)
			if _, err := creditDGTTx(tx, userID, int64(def.RewardPoints), models.TxAchievementReward, ref); err != nil {
				return err
			}
		}

		return s.notifier.Enqueue(tx, userID, models.NotificationAchievement,
			"Achievement unlocked: "+def.Name,
			def.Description,
			map[string]any{
				"achievement_id": def.ID,
				"reward_xp":      def.RewardXP,
				"reward_points":  def.RewardPoints,
				"rarity":         rarityOfDefinition(&def),
			})
	})
	if err != nil {
		return false, err
	}

	if awarded {
		recordXPGranted(xpRes)
		achievementsAwarded.WithLabelValues(def.Name).Inc()
		s.log.Info("achievement awarded", "user_id", userID, "achievement", def.Name)
	}
	return awarded, nil
}

// AchievementInput is the admin-authored part of a definition.
type AchievementInput struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Icon         string             `json:"icon"`
	Requirement  models.Requirement `json:"requirement"`
	RewardXP     int                `json:"reward_xp"`
	RewardPoints int                `json:"reward_points"`
	IsActive     *bool              `json:"is_active"`
}

func (in AchievementInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("name is required")
	}
	if strings.TrimSpace(in.Requirement.Action) == "" {
		return invalidInput("requirement.action is required")
	}
	if in.Requirement.Target <= 0 {
		return invalidInput("requirement.target must be positive")
	}
	if in.RewardXP < 0 || in.RewardPoints < 0 {
		return invalidInput("rewards must not be negative")
	}
	switch in.Requirement.Timeframe {
	case "", "daily", "weekly", "monthly", "lifetime":
	default:
		return invalidInput("unknown timeframe %q", in.Requirement.Timeframe)
	}
	return nil
}

func (in AchievementInput) apply(def *models.AchievementDefinition) {
	req := in.Requirement
	if req.Type == "" {
		req.Type = "count"
	}
	def.Name = strings.TrimSpace(in.Name)
	def.Description = in.Description
	def.Icon = in.Icon
	def.Requirement = datatypes.NewJSONType(req)
	def.RewardXP = in.RewardXP
	def.RewardPoints = in.RewardPoints
	if in.IsActive != nil {
		def.IsActive = *in.IsActive
	}
}

func (s *AchievementService) CreateAchievement(ctx context.Context, in AchievementInput) (*models.AchievementDefinition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	def := &models.AchievementDefinition{IsActive: true}
	in.apply(def)
	if !IsKnownAction(def.Requirement.Data().Action) {
		s.log.Warn("achievement created for action without progress strategy", "name", def.Name, "action", in.Requirement.Action)
	}
	if err := s.db.WithContext(ctx).Create(def).Error; err != nil {
		return nil, fmt.Errorf("failed to create achievement: %w", err)
	}
	return def, nil
}

func (s *AchievementService) UpdateAchievement(ctx context.Context, id uint, in AchievementInput) (*models.AchievementDefinition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var def models.AchievementDefinition
	if err := s.db.WithContext(ctx).First(&def, id).Error; err != nil {
		return nil, mapNotFound(err, ErrAchievementNotFound)
	}
	in.apply(&def)
	if err := s.db.WithContext(ctx).Save(&def).Error; err != nil {
		return nil, fmt.Errorf("failed to update achievement: %w", err)
	}
	return &def, nil
}

// DeleteAchievement removes a definition nobody has earned. Earned ones are
// deactivated instead so user_achievements keeps its history.
func (s *AchievementService) DeleteAchievement(ctx context.Context, id uint) (deleted bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var def models.AchievementDefinition
		if err := tx.First(&def, id).Error; err != nil {
			return mapNotFound(err, ErrAchievementNotFound)
		}
		var earnedCount int64
		if err := tx.Model(&models.UserAchievement{}).Where("achievement_id = ?", id).Count(&earnedCount).Error; err != nil {
			return err
		}
		if earnedCount > 0 {
			return tx.Model(&def).UpdateColumn("is_active", false).Error
		}
		deleted = true
		return tx.Delete(&def).Error
	})
	return deleted, err
}

func (s *AchievementService) GetAchievement(ctx context.Context, id uint) (*models.AchievementDefinition, error) {
	var def models.AchievementDefinition
	if err := s.db.WithContext(ctx).First(&def, id).Error; err != nil {
		return nil, mapNotFound(err, ErrAchievementNotFound)
	}
	return &def, nil
}

func (s *AchievementService) ListAchievements(ctx context.Context, includeInactive bool) ([]models.AchievementDefinition, error) {
	var defs []models.AchievementDefinition
	q := s.db.WithContext(ctx).Order("id")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

// CreateDefaultAchievements inserts the starter set, skipping names that
// already exist. It returns how many were created.
func (s *AchievementService) CreateDefaultAchievements(ctx context.Context, seeds []config.AchievementSeed) (int, error) {
	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seed := range seeds {
			def := models.AchievementDefinition{
				Name:        seed.Name,
				Description: seed.Description,
				Requirement: datatypes.NewJSONType(models.Requirement{
					Type:      "count",
					Action:    seed.Action,
					Target:    seed.Target,
					Timeframe: seed.Timeframe,
				}),
				RewardXP:     seed.RewardXP,
				RewardPoints: seed.RewardPoints,
				IsActive:     true,
			}
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&def)
			if res.Error != nil {
				return fmt.Errorf("failed to seed %q: %w", seed.Name, res.Error)
			}
			created += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// EarnedAchievement is a completed achievement with its timestamp.
type EarnedAchievement struct {
	Achievement models.AchievementDefinition `json:"achievement"`
	Rarity      string                       `json:"rarity"`
	EarnedAt    time.Time                    `json:"earned_at"`
}

type CategoryStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

type AchievementStats struct {
	TotalAchievements     int                      `json:"total_achievements"`
	CompletedAchievements int                      `json:"completed_achievements"`
	CompletionRate        float64                  `json:"completion_rate"`
	TotalRewardXP         int                      `json:"total_reward_xp"`
	TotalRewardPoints     int                      `json:"total_reward_points"`
	RecentEarned          []EarnedAchievement      `json:"recent_earned"`
	Categories            map[string]CategoryStats `json:"categories"`
}

const recentEarnedLimit = 5

// GetUserAchievementStats summarises a user's achievement page.
func (s *AchievementService) GetUserAchievementStats(ctx context.Context, userID uint) (*AchievementStats, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	var (
		defs   []models.AchievementDefinition
		earned []models.UserAchievement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("is_active = ?", true).Find(&defs).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Preload("Achievement").
			Where("user_id = ?", userID).
			Order("earned_at DESC").
			Find(&earned).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load achievement stats: %w", err)
	}

	stats := &AchievementStats{
		TotalAchievements: len(defs),
		RecentEarned:      []EarnedAchievement{},
		Categories:        map[string]CategoryStats{},
	}
	for i := range defs {
		c := stats.Categories[categoryOfDefinition(&defs[i])]
		c.Total++
		stats.Categories[categoryOfDefinition(&defs[i])] = c
	}

	for i := range earned {
		ua := earned[i]
		cat := categoryOfDefinition(&ua.Achievement)
		c := stats.Categories[cat]
		// Deactivated definitions stay on the page of users who earned them.
		if !ua.Achievement.IsActive {
			stats.TotalAchievements++
			c.Total++
		}
		c.Completed++
		stats.Categories[cat] = c
		stats.CompletedAchievements++
		stats.TotalRewardXP += ua.Achievement.RewardXP
		stats.TotalRewardPoints += ua.Achievement.RewardPoints
		if len(stats.RecentEarned) < recentEarnedLimit {
			stats.RecentEarned = append(stats.RecentEarned, EarnedAchievement{
				Achievement: ua.Achievement,
				Rarity:      rarityOfDefinition(&ua.Achievement),
				EarnedAt:    ua.EarnedAt,
			})
		}
	}

	if stats.TotalAchievements > 0 {
		stats.CompletionRate = float64(stats.CompletedAchievements) / float64(stats.TotalAchievements) * 100
	}
	return stats, nil
}

var _ AchievementTrigger = (*AchievementService)(nil)
