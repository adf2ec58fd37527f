package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"degentalk/logger"
	"degentalk/models"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, label string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.WithLabelValues(label).Write(&m))
	return m.GetCounter().GetValue()
}

func TestXPGrantedCountsCommittedGrants(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	before := counterValue(t, xpGranted, "mining")

	_, err := e.XP.AddXP(ctx, 999, 40, XPOptions{Path: "mining", SkipTriggers: true})
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, before, counterValue(t, xpGranted, "mining"))

	u := createUser(t, e.DB, "miner")
	_, err = e.XP.AddXP(ctx, u.ID, 40, XPOptions{Path: "mining", SkipTriggers: true})
	require.NoError(t, err)
	assert.Equal(t, before+40, counterValue(t, xpGranted, "mining"))
}

func TestNotificationsEnqueuedCountsCommittedRowsOnce(t *testing.T) {
	e := newBareEngine(t)
	u := createUser(t, e.DB, "counted")
	typ := string(models.NotificationReputation)
	before := counterValue(t, notificationsEnqueued, typ)

	err := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := e.Notifier.Enqueue(tx, u.ID, models.NotificationReputation, "+5 reputation", "", nil); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, e.DB.Transaction(func(tx *gorm.DB) error {
		return e.Notifier.Enqueue(tx, u.ID, models.NotificationReputation, "+10 reputation", "", nil)
	}))
	assert.Equal(t, before, counterValue(t, notificationsEnqueued, typ))

	// Retries of the same row are not counted again.
	pub := &recordingPublisher{fail: errors.New("socket closed")}
	d := NewDispatcher(e.DB, logger.Nop(), time.Second, 10, pub)
	for i := 0; i < 2; i++ {
		_, err := d.DispatchPending(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, before+1, counterValue(t, notificationsEnqueued, typ))
}
