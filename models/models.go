// models/models.go - Forum activity and economy models
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActionValueSetting is one row of the reward table, keyed by action.
type ActionValueSetting struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActionKey  string    `gorm:"not null;size:64;uniqueIndex" json:"action_key"`
	XPValue    int       `gorm:"column:xp_value;default:0" json:"xp_value"`
	CloutValue int       `gorm:"default:0" json:"clout_value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// XPAdjustmentLog records every XP grant, and revocations as negative rows;
// xp_earned progress sums it.
type XPAdjustmentLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_xp_log_user_date,priority:1" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Path      string    `gorm:"size:50" json:"path,omitempty"`
	Reason    string    `gorm:"size:100" json:"reason"`
	CreatedAt time.Time `gorm:"index:idx_xp_log_user_date,priority:2" json:"created_at"`
}

type CurrencyTransactionType string

const (
	TxAchievementReward CurrencyTransactionType = "achievement_reward"
	TxPurchase          CurrencyTransactionType = "purchase"
	TxTipSent           CurrencyTransactionType = "tip_sent"
	TxTipReceived       CurrencyTransactionType = "tip_received"
)

// CurrencyTransaction is a signed DGT movement.
type CurrencyTransaction struct {
	ID        uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint                    `gorm:"not null;index" json:"user_id"`
	Amount    int64                   `gorm:"not null" json:"amount"`
	Type      CurrencyTransactionType `gorm:"not null;size:40;index" json:"type"`
	Reference string                  `gorm:"size:100" json:"reference"`
	CreatedAt time.Time               `json:"created_at"`
}

func (t *CurrencyTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Thread represents a forum thread
type Thread struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"not null;size:200" json:"title"`
	Path      string    `gorm:"size:50;index" json:"path,omitempty"` // forum zone; XP earned in the thread accrues to it
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Post represents a reply in a thread
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ThreadID  uint      `gorm:"not null;index" json:"thread_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Reaction is unique per (post, reactor, type).
type Reaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"not null;uniqueIndex:idx_reaction" json:"post_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_reaction" json:"user_id"`
	ReactionType string    `gorm:"not null;size:20;uniqueIndex:idx_reaction" json:"reaction_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// Tip is a DGT transfer between two users
type Tip struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FromUserID uint      `gorm:"not null;index" json:"from_user_id"`
	ToUserID   uint      `gorm:"not null;index" json:"to_user_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (ActionValueSetting) TableName() string {
	return "action_value_settings"
}

func (XPAdjustmentLog) TableName() string {
	return "xp_adjustment_logs"
}

func (CurrencyTransaction) TableName() string {
	return "currency_transactions"
}

func (Thread) TableName() string {
	return "threads"
}

func (Post) TableName() string {
	return "posts"
}

func (Reaction) TableName() string {
	return "reactions"
}

func (Tip) TableName() string {
	return "tips"
}
