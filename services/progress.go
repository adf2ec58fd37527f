package services

import (
	"context"
	"time"

	"degentalk/models"

	"gorm.io/gorm"
)

// ActionKind names a supported achievement action. Each kind has exactly one
// registered progress strategy.
type ActionKind string

const (
	ActionPostsCreated      ActionKind = "posts_created"
	ActionThreadsCreated    ActionKind = "threads_created"
	ActionXPEarned          ActionKind = "xp_earned"
	ActionConsecutiveLogins ActionKind = "consecutive_logins"
	ActionLevelReached      ActionKind = "level_reached"
	ActionLikesReceived     ActionKind = "likes_received"
	ActionTipsGiven         ActionKind = "tips_given"
	ActionPurchasesMade     ActionKind = "purchases_made"
)

// progressFunc measures a user's progress. since is nil for lifetime windows.
type progressFunc func(db *gorm.DB, userID uint, since *time.Time) (int, error)

var progressStrategies = map[ActionKind]progressFunc{
	ActionPostsCreated:      countRows(&models.Post{}, "user_id"),
	ActionThreadsCreated:    countRows(&models.Thread{}, "user_id"),
	ActionTipsGiven:         countRows(&models.Tip{}, "from_user_id"),
	ActionXPEarned:          sumXPEarned,
	ActionLevelReached:      currentLevel,
	ActionLikesReceived:     countLikesReceived,
	ActionPurchasesMade:     countPurchases,
	ActionConsecutiveLogins: func(*gorm.DB, uint, *time.Time) (int, error) { return 0, nil }, // login streaks are not tracked
}

// IsKnownAction reports whether action has a progress strategy.
func IsKnownAction(action string) bool {
	_, ok := progressStrategies[ActionKind(action)]
	return ok
}

// windowStart clips aggregation to the requirement's timeframe.
func windowStart(timeframe string, now time.Time) *time.Time {
	var days int
	switch timeframe {
	case "daily":
		days = 1
	case "weekly":
		days = 7
	case "monthly":
		days = 30
	default:
		return nil
	}
	t := now.AddDate(0, 0, -days)
	return &t
}

func withWindow(q *gorm.DB, column string, since *time.Time) *gorm.DB {
	if since == nil {
		return q
	}
	return q.Where(column+" >= ?", *since)
}

func countRows(model any, userColumn string) progressFunc {
	return func(db *gorm.DB, userID uint, since *time.Time) (int, error) {
		var n int64
		q := db.Model(model).Where(userColumn+" = ?", userID)
		err := withWindow(q, "created_at", since).Count(&n).Error
		return int(n), err
	}
}

func sumXPEarned(db *gorm.DB, userID uint, since *time.Time) (int, error) {
	var total int64
	q := db.Model(&models.XPAdjustmentLog{}).Where("user_id = ?", userID)
	err := withWindow(q, "created_at", since).Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return max(int(total), 0), err
}

func currentLevel(db *gorm.DB, userID uint, _ *time.Time) (int, error) {
	var user models.User
	if err := db.Select("id", "level").First(&user, userID).Error; err != nil {
		return 0, mapNotFound(err, ErrUserNotFound)
	}
	return user.Level, nil
}

// countLikesReceived counts likes on the user's posts, ignoring self-likes.
func countLikesReceived(db *gorm.DB, userID uint, since *time.Time) (int, error) {
	var n int64
	q := db.Table("reactions").
		Joins("JOIN posts ON posts.id = reactions.post_id").
		Where("posts.user_id = ? AND reactions.reaction_type = ? AND reactions.user_id <> posts.user_id", userID, "like")
	err := withWindow(q, "reactions.created_at", since).Count(&n).Error
	return int(n), err
}

func countPurchases(db *gorm.DB, userID uint, since *time.Time) (int, error) {
	var n int64
	q := db.Model(&models.CurrencyTransaction{}).Where("user_id = ? AND type = ?", userID, models.TxPurchase)
	err := withWindow(q, "created_at", since).Count(&n).Error
	return int(n), err
}

// measureProgress returns current progress for req. Unknown actions log a
// warning and report 0 so the achievement simply never completes.
func (s *AchievementService) measureProgress(ctx context.Context, userID uint, req models.Requirement) (int, error) {
	fn, ok := progressStrategies[ActionKind(req.Action)]
	if !ok {
		s.log.Warn("no progress strategy for achievement action", "action", req.Action)
		return 0, nil
	}
	return fn(s.db.WithContext(ctx), userID, windowStart(req.Timeframe, time.Now().UTC()))
}
