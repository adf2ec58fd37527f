package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrAchievementNotFound = fmt.Errorf("achievement %w", ErrNotFound)
	ErrActionNotFound      = fmt.Errorf("action value %w", ErrNotFound)
	ErrPostNotFound        = fmt.Errorf("post %w", ErrNotFound)
	ErrThreadNotFound      = fmt.Errorf("thread %w", ErrNotFound)

	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient DGT balance")

	// ErrTriggerFailed means the primary write committed but the follow-up
	// achievement evaluation did not. Retry the evaluation, not the write.
	ErrTriggerFailed = errors.New("achievement trigger failed")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// mapNotFound turns gorm's record-not-found into the given domain error.
func mapNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// IsRetryable reports whether err is a transient store failure after which
// re-running the whole evaluation is safe and likely to succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") || strings.Contains(msg, "database is locked")
}
