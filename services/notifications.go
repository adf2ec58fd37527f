package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"degentalk/logger"
	"degentalk/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier writes notification records into the outbox. It never delivers;
// delivery belongs to the Dispatcher.
type Notifier struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotifier(db *gorm.DB, log *logger.Logger) *Notifier {
	return &Notifier{db: db, log: log.With("service", "Notifier")}
}

// Enqueue inserts a pending notification using the caller's transaction so it
// commits or rolls back together with the reward that produced it.
func (n *Notifier) Enqueue(tx *gorm.DB, userID uint, typ models.NotificationType, title, body string, data map[string]any) error {
	notif := &models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   datatypes.JSONMap(data),
		Status: models.NotificationPending,
	}
	if err := tx.Create(notif).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s notification: %w", typ, err)
	}
	n.log.Debug("notification enqueued", "user_id", userID, "type", typ)
	return nil
}

// Recent returns the user's newest notifications regardless of delivery state.
func (n *Notifier) Recent(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items := []models.Notification{}
	err := n.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Publisher delivers one notification to some transport.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, n *models.Notification) error
}

const maxDeliveryAttempts = 5

// Dispatcher drains pending notifications and fans them out to publishers.
type Dispatcher struct {
	db         *gorm.DB
	log        *logger.Logger
	publishers []Publisher
	interval   time.Duration
	batchSize  int

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewDispatcher(db *gorm.DB, log *logger.Logger, interval time.Duration, batchSize int, publishers ...Publisher) *Dispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Dispatcher{
		db:         db,
		log:        log.With("service", "Dispatcher"),
		publishers: publishers,
		interval:   interval,
		batchSize:  batchSize,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start polls the outbox until Stop is called or ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stop:
				return
			case <-ticker.C:
				if _, err := d.DispatchPending(ctx); err != nil {
					d.log.Error("dispatch pass failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the polling loop and waits for an in-flight pass to finish.
func (d *Dispatcher) Stop() {
	if !d.started.Load() {
		return
	}
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	<-d.done
}

// DispatchPending delivers one batch and returns how many were sent.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	var pending []models.Notification
	if err := d.db.WithContext(ctx).
		Where("status = ?", models.NotificationPending).
		Order("created_at ASC").
		Limit(d.batchSize).
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("failed to load pending notifications: %w", err)
	}

	sent := 0
	for i := range pending {
		n := &pending[i]
		if n.Attempts == 0 {
			notificationsEnqueued.WithLabelValues(string(n.Type)).Inc()
		}
		err := d.deliver(ctx, n)
		if err := d.markResult(ctx, n, err); err != nil {
			return sent, err
		}
		if err == nil {
			sent++
		}
	}
	return sent, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range d.publishers {
		p := p
		g.Go(func() error {
			if err := p.Publish(gctx, n); err != nil {
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) markResult(ctx context.Context, n *models.Notification, deliverErr error) error {
	updates := map[string]any{"attempts": gorm.Expr("attempts + 1")}
	if deliverErr == nil {
		now := time.Now().UTC()
		updates["status"] = models.NotificationSent
		updates["sent_at"] = now
		updates["last_error"] = ""
		notificationsDispatched.WithLabelValues("sent").Inc()
	} else {
		updates["last_error"] = deliverErr.Error()
		if n.Attempts+1 >= maxDeliveryAttempts {
			updates["status"] = models.NotificationFailed
		}
		notificationsDispatched.WithLabelValues("error").Inc()
		d.log.Warn("notification delivery failed", "notification_id", n.ID, "attempt", n.Attempts+1, "error", deliverErr)
	}
	if err := d.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", n.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update notification %s: %w", n.ID, err)
	}
	return nil
}

// RedisPublisher publishes each notification as JSON on "<prefix>:<user_id>".
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Channel(userID uint) string {
	return fmt.Sprintf("%s:%d", p.prefix, userID)
}

func (p *RedisPublisher) Publish(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.Channel(n.UserID), payload).Err()
}
