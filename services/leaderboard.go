// services/leaderboard.go - Read-only ranking rollups
package services

import (
	"context"
	"fmt"

	"degentalk/logger"

	"gorm.io/gorm"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

type LeaderboardService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeaderboardService(db *gorm.DB, log *logger.Logger) *LeaderboardService {
	return &LeaderboardService{db: db, log: log.With("service", "LeaderboardService")}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return limit
}

// AchievementLeaderboardEntry is one ranked user.
type AchievementLeaderboardEntry struct {
	Rank              int    `gorm:"column:leaderboard_rank" json:"rank"`
	UserID            uint   `json:"user_id"`
	Username          string `json:"username"`
	DisplayName       string `json:"display_name"`
	Level             int    `json:"level"`
	AchievementCount  int    `json:"achievement_count"`
	TotalRewardXP     int    `gorm:"column:total_reward_xp" json:"total_reward_xp"`
	TotalRewardPoints int    `json:"total_reward_points"`
}

// AchievementLeaderboard ranks users by achievement count, then by total XP
// reward, with dense ranks starting at 1. Users with no achievements are omitted.
func (s *LeaderboardService) AchievementLeaderboard(ctx context.Context, limit int) ([]AchievementLeaderboardEntry, error) {
	entries := []AchievementLeaderboardEntry{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			u.id AS user_id,
			u.username,
			u.display_name,
			u.level,
			COUNT(ua.id) AS achievement_count,
			COALESCE(SUM(ad.reward_xp), 0) AS total_reward_xp,
			COALESCE(SUM(ad.reward_points), 0) AS total_reward_points,
			DENSE_RANK() OVER (ORDER BY COUNT(ua.id) DESC, COALESCE(SUM(ad.reward_xp), 0) DESC) AS leaderboard_rank
		FROM users u
		JOIN user_achievements ua ON ua.user_id = u.id
		JOIN achievement_definitions ad ON ad.id = ua.achievement_id
		WHERE u.is_banned = ?
		GROUP BY u.id, u.username, u.display_name, u.level
		ORDER BY leaderboard_rank ASC, u.id ASC
		LIMIT ?
	`, false, clampLimit(limit)).Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build achievement leaderboard: %w", err)
	}
	return entries, nil
}

// ProgressionLeaderboardEntry is one user ranked on a progression counter.
type ProgressionLeaderboardEntry struct {
	Rank        int    `gorm:"column:leaderboard_rank" json:"rank"`
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level"`
	XP          int    `gorm:"column:xp" json:"xp"`
	Reputation  int    `json:"reputation"`
	Clout       int    `json:"clout"`
}

var progressionOrder = map[string]string{
	"xp":         "u.xp DESC",
	"level":      "u.level DESC, u.xp DESC",
	"reputation": "u.reputation DESC",
	"clout":      "u.clout DESC",
}

// ProgressionLeaderboard ranks users on xp, level, reputation or clout.
func (s *LeaderboardService) ProgressionLeaderboard(ctx context.Context, category string, limit int) ([]ProgressionLeaderboardEntry, error) {
	order, ok := progressionOrder[category]
	if !ok {
		return nil, invalidInput("unknown leaderboard category %q", category)
	}
	entries := []ProgressionLeaderboardEntry{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			u.id AS user_id, u.username, u.display_name, u.level, u.xp, u.reputation, u.clout,
			DENSE_RANK() OVER (ORDER BY `+order+`) AS leaderboard_rank
		FROM users u
		WHERE u.is_banned = ?
		ORDER BY leaderboard_rank ASC, u.id ASC
		LIMIT ?
	`, false, clampLimit(limit)).Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build %s leaderboard: %w", category, err)
	}
	return entries, nil
}
