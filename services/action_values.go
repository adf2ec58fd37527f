// services/action_values.go - Reward table lookups and reversible point awards
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"degentalk/logger"
	"degentalk/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActionValues is the reward attached to one action key.
type ActionValues struct {
	ActionKey  string `json:"action_key"`
	XPValue    int    `json:"xp_value"`
	CloutValue int    `json:"clout_value"`
}

type ActionValueService struct {
	db  *gorm.DB
	log *logger.Logger
	xp  *XPService
}

func NewActionValueService(db *gorm.DB, log *logger.Logger, xp *XPService) *ActionValueService {
	return &ActionValueService{db: db, log: log.With("service", "ActionValueService"), xp: xp}
}

// GetActionValues looks up the reward for actionKey.
func (s *ActionValueService) GetActionValues(ctx context.Context, actionKey string) (*ActionValues, error) {
	return s.getActionValuesTx(s.db.WithContext(ctx), actionKey)
}

func (s *ActionValueService) getActionValuesTx(tx *gorm.DB, actionKey string) (*ActionValues, error) {
	var row models.ActionValueSetting
	if err := tx.Where("action_key = ?", actionKey).First(&row).Error; err != nil {
		return nil, mapNotFound(err, ErrActionNotFound)
	}
	return &ActionValues{ActionKey: row.ActionKey, XPValue: row.XPValue, CloutValue: row.CloutValue}, nil
}

func (s *ActionValueService) ListActionValues(ctx context.Context) ([]ActionValues, error) {
	var rows []models.ActionValueSetting
	if err := s.db.WithContext(ctx).Order("action_key").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ActionValues, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActionValues{ActionKey: r.ActionKey, XPValue: r.XPValue, CloutValue: r.CloutValue})
	}
	return out, nil
}

// UpsertActionValue creates or overwrites the row for v.ActionKey.
func (s *ActionValueService) UpsertActionValue(ctx context.Context, v ActionValues) error {
	key := strings.TrimSpace(v.ActionKey)
	if key == "" {
		return invalidInput("action_key is required")
	}
	if v.XPValue < 0 || v.CloutValue < 0 {
		return invalidInput("action values must not be negative")
	}
	row := models.ActionValueSetting{ActionKey: key, XPValue: v.XPValue, CloutValue: v.CloutValue}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "action_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"xp_value", "clout_value", "updated_at"}),
	}).Create(&row).Error
}

// scaled applies an optional multiplier to a reward; anything <= 0 means 1.
func scaled(value int, multiplier float64) int {
	if multiplier <= 0 {
		multiplier = 1
	}
	return int(math.Floor(float64(value) * multiplier))
}

// AwardPoints grants the XP and clout configured for actionKey. It reports
// false when there was nothing to grant, including unconfigured keys.
func (s *ActionValueService) AwardPoints(ctx context.Context, userID uint, actionKey string, multiplier float64) (bool, error) {
	var (
		awarded bool
		res     *XPResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		awarded, res, err = s.awardPointsTx(tx, userID, actionKey, multiplier, XPOptions{Reason: actionKey})
		return err
	})
	if err != nil {
		return false, err
	}
	recordXPGranted(res)
	if _, err := s.xp.fireTriggers(ctx, res); err != nil {
		return awarded, err
	}
	return awarded, nil
}

func (s *ActionValueService) awardPointsTx(tx *gorm.DB, userID uint, actionKey string, multiplier float64, opts XPOptions) (bool, *XPResult, error) {
	values, err := s.getActionValuesTx(tx, actionKey)
	if errors.Is(err, ErrActionNotFound) {
		s.log.Warn("no action value configured", "action_key", actionKey)
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	xp := scaled(values.XPValue, multiplier)
	clout := scaled(values.CloutValue, multiplier)
	if xp <= 0 && clout <= 0 {
		return false, nil, nil
	}

	var res *XPResult
	if xp > 0 {
		if opts.Reason == "" {
			opts.Reason = actionKey
		}
		if res, err = s.xp.applyTx(tx, userID, xp, opts); err != nil {
			return false, nil, err
		}
	}
	if clout > 0 {
		update := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("clout", gorm.Expr("clout + ?", clout))
		if update.Error != nil {
			return false, nil, fmt.Errorf("failed to add clout: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return false, nil, ErrUserNotFound
		}
	}
	return true, res, nil
}

// RevokePoints reverses a prior AwardPoints. XP and clout are clamped at zero
// and the removed XP is logged as a negative adjustment; level and path XP are
// left untouched.
func (s *ActionValueService) RevokePoints(ctx context.Context, userID uint, actionKey string, multiplier float64) (bool, error) {
	var revoked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		revoked, err = s.revokePointsTx(tx, userID, actionKey, multiplier)
		return err
	})
	if err != nil {
		return false, err
	}
	if revoked {
		pointsRevoked.WithLabelValues(actionKey).Inc()
	}
	return revoked, nil
}

func (s *ActionValueService) revokePointsTx(tx *gorm.DB, userID uint, actionKey string, multiplier float64) (bool, error) {
	values, err := s.getActionValuesTx(tx, actionKey)
	if errors.Is(err, ErrActionNotFound) {
		s.log.Warn("no action value configured", "action_key", actionKey)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	xp := scaled(values.XPValue, multiplier)
	clout := scaled(values.CloutValue, multiplier)
	if xp <= 0 && clout <= 0 {
		return false, nil
	}

	// Lock the row so the amount removed matches what the clamp removes.
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "xp", "clout").First(&user, userID).Error; err != nil {
		return false, mapNotFound(err, ErrUserNotFound)
	}
	removedXP := min(xp, user.XP)
	removedClout := min(clout, user.Clout)

	update := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumns(map[string]any{
		"xp":    gorm.Expr("CASE WHEN xp > ? THEN xp - ? ELSE 0 END", removedXP, removedXP),
		"clout": gorm.Expr("CASE WHEN clout > ? THEN clout - ? ELSE 0 END", removedClout, removedClout),
	})
	if update.Error != nil {
		return false, fmt.Errorf("failed to revoke points: %w", update.Error)
	}

	// Offset the grant in the XP log so xp_earned tracks net XP.
	if removedXP > 0 {
		entry := &models.XPAdjustmentLog{UserID: userID, Amount: -removedXP, Reason: "revoke:" + actionKey}
		if err := tx.Create(entry).Error; err != nil {
			return false, fmt.Errorf("failed to log xp revocation: %w", err)
		}
	}
	return true, nil
}
