package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"degentalk/logger"
	"degentalk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu   sync.Mutex
	got  []models.Notification
	fail error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, *n)
	return nil
}

func enqueue(t *testing.T, e *Engine, userID uint, title string) {
	t.Helper()
	require.NoError(t, e.DB.Transaction(func(tx *gorm.DB) error {
		return e.Notifier.Enqueue(tx, userID, models.NotificationAchievement, title, "", map[string]any{"k": "v"})
	}))
}

func TestEnqueueRollsBackWithTransaction(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "rollback")

	err := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := e.Notifier.Enqueue(tx, u.ID, models.NotificationLevelUp, "Level up!", "", nil); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Zero(t, countNotifications(t, e.DB, u.ID, models.NotificationLevelUp))
}

func TestDispatcherDeliversPending(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "listener")
	enqueue(t, e, u.ID, "one")
	enqueue(t, e, u.ID, "two")

	pub := &recordingPublisher{}
	d := NewDispatcher(e.DB, logger.Nop(), time.Second, 10, pub)

	sent, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, pub.got, 2)
	assert.Equal(t, "v", pub.got[0].Data["k"])

	var rows []models.Notification
	require.NoError(t, e.DB.Find(&rows).Error)
	for _, n := range rows {
		assert.Equal(t, models.NotificationSent, n.Status)
		assert.Equal(t, 1, n.Attempts)
		assert.NotNil(t, n.SentAt)
	}

	sent, err = d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestDispatcherMarksFailedAfterMaxAttempts(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "unreachable")
	enqueue(t, e, u.ID, "lost")

	pub := &recordingPublisher{fail: errors.New("socket closed")}
	d := NewDispatcher(e.DB, logger.Nop(), time.Second, 10, pub)

	for i := 0; i < maxDeliveryAttempts; i++ {
		sent, err := d.DispatchPending(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sent)
	}

	var n models.Notification
	require.NoError(t, e.DB.First(&n).Error)
	assert.Equal(t, models.NotificationFailed, n.Status)
	assert.Equal(t, maxDeliveryAttempts, n.Attempts)
	assert.Contains(t, n.LastError, "socket closed")

	sent, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestDispatcherStartStop(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "looper")
	enqueue(t, e, u.ID, "async")

	pub := &recordingPublisher{}
	d := NewDispatcher(e.DB, logger.Nop(), 10*time.Millisecond, 10, pub)
	d.Start(context.Background())

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.got) == 1
	}, 2*time.Second, 10*time.Millisecond)
	d.Stop()
	d.Stop()
}

func TestRecentNewestFirst(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "reader")
	other := createUser(t, e.DB, "other")
	enqueue(t, e, u.ID, "older")
	enqueue(t, e, other.ID, "not mine")
	require.NoError(t, e.DB.Model(&models.Notification{}).Where("title = ?", "older").
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	enqueue(t, e, u.ID, "newer")

	items, err := e.Notifier.Recent(context.Background(), u.ID, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].Title)
	assert.Equal(t, "older", items[1].Title)
}

func TestRedisPublisherChannel(t *testing.T) {
	assert.Equal(t, "notifications:42", NewRedisPublisher(nil, "").Channel(42))
	assert.Equal(t, "dt:7", NewRedisPublisher(nil, "dt").Channel(7))
}
