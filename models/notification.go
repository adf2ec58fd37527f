// models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationAchievement        NotificationType = "achievement"
	NotificationMultiplierIncrease NotificationType = "multiplier_increase"
	NotificationEmojiUnlock        NotificationType = "emoji_unlock"
	NotificationLevelUp            NotificationType = "level_up"
	NotificationReputation         NotificationType = "reputation"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbox row: written inside the rewarding transaction,
// delivered later by the dispatcher.
type Notification struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint               `gorm:"not null;index" json:"user_id"`
	Type      NotificationType   `gorm:"not null;size:40" json:"type"`
	Title     string             `gorm:"not null" json:"title"`
	Body      string             `json:"body"`
	Data      datatypes.JSONMap  `json:"data"`
	Status    NotificationStatus `gorm:"not null;size:20;index" json:"status"`
	Attempts  int                `gorm:"default:0" json:"attempts"`
	LastError string             `json:"last_error,omitempty"`
	CreatedAt time.Time          `gorm:"index" json:"created_at"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = NotificationPending
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}
