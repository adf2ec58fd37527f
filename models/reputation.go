// models/reputation.go
package models

import "time"

// ReputationAchievement is a simple threshold reward keyed by a trigger type.
type ReputationAchievement struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AchievementKey   string    `gorm:"not null;size:64;uniqueIndex" json:"achievement_key"`
	Name             string    `gorm:"not null" json:"name"`
	Description      string    `json:"description"`
	CriteriaType     string    `gorm:"not null;size:50;index" json:"criteria_type"`
	CriteriaValue    int       `gorm:"not null" json:"criteria_value"`
	ReputationReward int       `gorm:"not null" json:"reputation_reward"`
	Enabled          bool      `gorm:"index" json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserReputationLog is append-only; users.reputation must equal the sum of
// ReputationEarned over a user's rows. (user_id, achievement_id) is unique so a
// reputation achievement lands at most once; rows without an achievement are unconstrained.
type UserReputationLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index;uniqueIndex:idx_reputation_user_achievement" json:"user_id"`
	AchievementID    *uint     `gorm:"uniqueIndex:idx_reputation_user_achievement" json:"achievement_id,omitempty"`
	ReputationEarned int       `gorm:"not null" json:"reputation_earned"`
	Reason           string    `gorm:"size:255" json:"reason"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (ReputationAchievement) TableName() string {
	return "reputation_achievements"
}

func (UserReputationLog) TableName() string {
	return "user_reputation_logs"
}
