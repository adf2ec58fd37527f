// models/achievement.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Requirement describes what a user has to do to earn an achievement.
type Requirement struct {
	Type       string         `json:"type"` // count, threshold
	Action     string         `json:"action"`
	Target     int            `json:"target"`
	Timeframe  string         `json:"timeframe,omitempty"` // daily, weekly, monthly, lifetime
	Conditions map[string]any `json:"conditions,omitempty"`
}

// AchievementDefinition is an admin-authored, rewardable goal.
// Rarity and category are derived from rewards and requirement, never stored.
type AchievementDefinition struct {
	ID          uint                            `gorm:"primaryKey" json:"id"`
	Name        string                          `gorm:"not null;uniqueIndex" json:"name"`
	Description string                          `json:"description"`
	Icon        string                          `json:"icon"`
	Requirement datatypes.JSONType[Requirement] `gorm:"not null" json:"requirement"`

	// Rewards
	RewardXP     int `gorm:"column:reward_xp;default:0" json:"reward_xp"`
	RewardPoints int `gorm:"default:0" json:"reward_points"` // DGT

	IsActive bool `gorm:"index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserAchievement is unique on (user, achievement): an achievement is earned at most once.
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID uint      `gorm:"not null;uniqueIndex:idx_user_achievement;index" json:"achievement_id"`
	EarnedAt      time.Time `gorm:"index" json:"earned_at"`

	// Relationships
	Achievement AchievementDefinition `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}

func (AchievementDefinition) TableName() string {
	return "achievement_definitions"
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
