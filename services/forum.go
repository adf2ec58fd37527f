// services/forum.go - Forum actions that feed the rewards engine
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"degentalk/logger"
	"degentalk/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ActionKeyPostCreate     = "POST_CREATE"
	ActionKeyThreadCreate   = "THREAD_CREATE"
	reactionActionKeyPrefix = "REACTION_RECEIVE_"
	ReactionLike            = "like"
)

var (
	reactionTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,19}$`)
	pathPattern         = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)
)

// ReactionActionKey is the action-value key rewarded to a post author.
func ReactionActionKey(reactionType string) string {
	return reactionActionKeyPrefix + strings.ToUpper(reactionType)
}

type ForumService struct {
	db           *gorm.DB
	log          *logger.Logger
	xp           *XPService
	values       *ActionValueService
	achievements *AchievementService
	reputation   *ReputationService
}

func NewForumService(db *gorm.DB, log *logger.Logger, xp *XPService, values *ActionValueService, achievements *AchievementService, reputation *ReputationService) *ForumService {
	return &ForumService{
		db:           db,
		log:          log.With("service", "ForumService"),
		xp:           xp,
		values:       values,
		achievements: achievements,
		reputation:   reputation,
	}
}

func userExistsTx(tx *gorm.DB, userID uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// afterAction runs the evaluations owed after a committed forum write.
func (s *ForumService) afterAction(ctx context.Context, userID uint, xpRes *XPResult, action ActionKind) ([]models.AchievementDefinition, error) {
	recordXPGranted(xpRes)
	awarded, err := s.xp.fireTriggers(ctx, xpRes)
	if err != nil {
		return awarded, err
	}
	got, err := s.achievements.CheckAndAwardAchievements(ctx, userID, string(action), nil)
	awarded = append(awarded, got...)
	if err != nil {
		return awarded, fmt.Errorf("%w: %w", ErrTriggerFailed, err)
	}
	return awarded, nil
}

// threadPathTx returns the forum zone of a thread, empty for none.
func threadPathTx(tx *gorm.DB, threadID uint) (string, error) {
	var thread models.Thread
	if err := tx.Select("id", "path").First(&thread, threadID).Error; err != nil {
		return "", mapNotFound(err, ErrThreadNotFound)
	}
	return thread.Path, nil
}

// CreateThread opens a thread in the path zone (may be empty), rewards
// THREAD_CREATE and evaluates threads_created.
func (s *ForumService) CreateThread(ctx context.Context, userID uint, title, path string) (*models.Thread, []models.AchievementDefinition, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil, invalidInput("title is required")
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path != "" && !pathPattern.MatchString(path) {
		return nil, nil, invalidInput("invalid path %q", path)
	}

	thread := &models.Thread{UserID: userID, Title: title, Path: path}
	var xpRes *XPResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExistsTx(tx, userID); err != nil {
			return err
		}
		if err := tx.Create(thread).Error; err != nil {
			return fmt.Errorf("failed to create thread: %w", err)
		}
		var err error
		_, xpRes, err = s.values.awardPointsTx(tx, userID, ActionKeyThreadCreate, 1,
			XPOptions{Path: thread.Path, Reason: ActionKeyThreadCreate})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	awarded, err := s.afterAction(ctx, userID, xpRes, ActionThreadsCreated)
	return thread, awarded, err
}

// CreatePost replies to a thread, rewards POST_CREATE and evaluates posts_created.
func (s *ForumService) CreatePost(ctx context.Context, userID, threadID uint, body string) (*models.Post, []models.AchievementDefinition, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil, invalidInput("body is required")
	}

	post := &models.Post{ThreadID: threadID, UserID: userID, Body: body}
	var xpRes *XPResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExistsTx(tx, userID); err != nil {
			return err
		}
		path, err := threadPathTx(tx, threadID)
		if err != nil {
			return err
		}
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		_, xpRes, err = s.values.awardPointsTx(tx, userID, ActionKeyPostCreate, 1,
			XPOptions{Path: path, Reason: ActionKeyPostCreate})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	awarded, err := s.afterAction(ctx, userID, xpRes, ActionPostsCreated)
	return post, awarded, err
}

// ReactionResult reports what a reaction toggle changed.
type ReactionResult struct {
	Changed        bool                           `json:"changed"`
	AuthorRewarded bool                           `json:"author_rewarded"`
	AuthorID       uint                           `json:"author_id"`
	Reputation     []models.ReputationAchievement `json:"reputation,omitempty"`
	Achievements   []models.AchievementDefinition `json:"achievements,omitempty"`
}

func normalizeReactionType(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	if !reactionTypePattern.MatchString(t) {
		return "", invalidInput("invalid reaction type %q", t)
	}
	return t, nil
}

func loadPostTx(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	if err := tx.Select("id", "user_id", "thread_id").First(&post, postID).Error; err != nil {
		return nil, mapNotFound(err, ErrPostNotFound)
	}
	return &post, nil
}

// AddReaction records a reaction. When it is new and not a self-reaction, the
// post author receives REACTION_RECEIVE_<TYPE> in the same transaction.
func (s *ForumService) AddReaction(ctx context.Context, postID, reactorID uint, reactionType string) (*ReactionResult, error) {
	reactionType, err := normalizeReactionType(reactionType)
	if err != nil {
		return nil, err
	}

	res := &ReactionResult{}
	var xpRes *XPResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := loadPostTx(tx, postID)
		if err != nil {
			return err
		}
		res.AuthorID = post.UserID
		if err := userExistsTx(tx, reactorID); err != nil {
			return err
		}

		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Reaction{
			PostID:       postID,
			UserID:       reactorID,
			ReactionType: reactionType,
		})
		if insert.Error != nil {
			return fmt.Errorf("failed to add reaction: %w", insert.Error)
		}
		if insert.RowsAffected == 0 {
			return nil
		}
		res.Changed = true

		if post.UserID == reactorID {
			return nil
		}
		path, err := threadPathTx(tx, post.ThreadID)
		if err != nil {
			return err
		}
		res.AuthorRewarded, xpRes, err = s.values.awardPointsTx(tx, post.UserID, ReactionActionKey(reactionType), 1,
			XPOptions{Path: path, Reason: "reaction:" + reactionType})
		return err
	})
	if err != nil {
		return nil, err
	}
	recordXPGranted(xpRes)
	if !res.Changed || res.AuthorID == reactorID {
		return res, nil
	}

	var errs []error
	if awarded, err := s.xp.fireTriggers(ctx, xpRes); err != nil {
		errs = append(errs, err)
	} else {
		res.Achievements = append(res.Achievements, awarded...)
	}

	if reactionType == ReactionLike {
		likes, err := countLikesReceived(s.db.WithContext(ctx), res.AuthorID, nil)
		if err != nil {
			errs = append(errs, err)
		} else {
			granted, err := s.reputation.CheckAchievements(ctx, res.AuthorID, string(ActionLikesReceived), &likes)
			if err != nil {
				errs = append(errs, err)
			}
			res.Reputation = granted
		}
		awarded, err := s.achievements.CheckAndAwardAchievements(ctx, res.AuthorID, string(ActionLikesReceived), map[string]any{"post_id": postID})
		if err != nil {
			errs = append(errs, err)
		}
		res.Achievements = append(res.Achievements, awarded...)
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("%w: %w", ErrTriggerFailed, errors.Join(errs...))
	}
	return res, nil
}

// RemoveReaction deletes a reaction and reverses the author's reward, clamped at zero.
func (s *ForumService) RemoveReaction(ctx context.Context, postID, reactorID uint, reactionType string) (*ReactionResult, error) {
	reactionType, err := normalizeReactionType(reactionType)
	if err != nil {
		return nil, err
	}

	res := &ReactionResult{}
	revoked := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := loadPostTx(tx, postID)
		if err != nil {
			return err
		}
		res.AuthorID = post.UserID

		del := tx.Where("post_id = ? AND user_id = ? AND reaction_type = ?", postID, reactorID, reactionType).
			Delete(&models.Reaction{})
		if del.Error != nil {
			return fmt.Errorf("failed to remove reaction: %w", del.Error)
		}
		if del.RowsAffected == 0 {
			return nil
		}
		res.Changed = true

		if post.UserID == reactorID {
			return nil
		}
		revoked, err = s.values.revokePointsTx(tx, post.UserID, ReactionActionKey(reactionType), 1)
		return err
	})
	if err != nil {
		return nil, err
	}
	if revoked {
		pointsRevoked.WithLabelValues(ReactionActionKey(reactionType)).Inc()
	}
	return res, nil
}
