// models/user.go
package models

import (
	"time"
)

type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	IsAdmin     bool   `gorm:"default:false" json:"is_admin"`
	IsBanned    bool   `gorm:"default:false" json:"is_banned"`

	// Progression. Only the rewards engine writes these, always with
	// "col = col + ?" style updates.
	Level      int   `gorm:"default:1" json:"level"`
	XP         int   `gorm:"default:0" json:"xp"`
	Clout      int   `gorm:"default:0" json:"clout"`
	Reputation int   `gorm:"default:0" json:"reputation"`
	DGTBalance int64 `gorm:"column:dgt_balance;default:0" json:"dgt_balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Paths        []UserPathXP      `gorm:"foreignKey:UserID" json:"paths,omitempty"`
	Emojis       []UserEmoji       `gorm:"foreignKey:UserID" json:"emojis,omitempty"`
	Achievements []UserAchievement `gorm:"foreignKey:UserID" json:"achievements,omitempty"`
}

// UserPathXP is one row per (user, path). Multiplier is a step function of XP.
type UserPathXP struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_path" json:"user_id"`
	Path       string    `gorm:"not null;size:50;uniqueIndex:idx_user_path" json:"path"`
	XP         int       `gorm:"column:xp;not null;default:0" json:"xp"`
	Multiplier float64   `gorm:"not null;default:1" json:"multiplier"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserEmoji records a cosmetic unlocked by a user.
type UserEmoji struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_emoji" json:"user_id"`
	EmojiKey   string    `gorm:"not null;size:64;uniqueIndex:idx_user_emoji" json:"emoji_key"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// EmojiUnlockRule unlocks EmojiKey once a user's XP on Path reaches RequiredPathXP.
type EmojiUnlockRule struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	EmojiKey       string `gorm:"not null;size:64;uniqueIndex" json:"emoji_key"`
	UnlockType     string `gorm:"not null;size:20;index" json:"unlock_type"` // path_xp
	Path           string `gorm:"size:50;index" json:"path"`
	RequiredPathXP int    `gorm:"column:required_path_xp;default:0" json:"required_path_xp"`
}

const UnlockTypePathXP = "path_xp"

func (UserPathXP) TableName() string {
	return "user_path_xps"
}

func (UserEmoji) TableName() string {
	return "user_emojis"
}

func (EmojiUnlockRule) TableName() string {
	return "emoji_unlock_rules"
}
