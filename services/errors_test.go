package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrUserNotFound))
	assert.True(t, IsRetryable(fmt.Errorf("award: %w", &pgconn.PgError{Code: "40001"})))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("database is locked")))
}

func TestNotFoundErrorsWrapSentinel(t *testing.T) {
	for _, err := range []error{ErrUserNotFound, ErrAchievementNotFound, ErrActionNotFound, ErrPostNotFound, ErrThreadNotFound} {
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.ErrorIs(t, invalidInput("bad %s", "thing"), ErrInvalidInput)
}
