package services

import "github.com/prometheus/client_golang/prometheus"

var (
	achievementsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_achievements_awarded_total",
			Help: "Achievements awarded, by achievement name",
		},
		[]string{"achievement"},
	)
	xpGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_xp_granted_total",
			Help: "Global XP granted, by path (empty for no path)",
		},
		[]string{"path"},
	)
	pointsRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_points_revoked_total",
			Help: "Action rewards reversed, by action key",
		},
		[]string{"action"},
	)
	reputationGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewards_reputation_granted_total",
			Help: "Reputation granted through the ledger",
		},
	)
	notificationsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_notifications_enqueued_total",
			Help: "Committed outbox notifications, by type, counted on first dispatch",
		},
		[]string{"type"},
	)
	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_notifications_dispatched_total",
			Help: "Notification delivery attempts, by result",
		},
		[]string{"result"},
	)
)

// recordXPGranted counts a grant once its transaction has committed.
func recordXPGranted(res *XPResult) {
	if res != nil && res.Applied {
		xpGranted.WithLabelValues(res.Path).Add(float64(res.Amount))
	}
}

// RegisterMetrics registers the engine's collectors. Call this once from main.go.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		achievementsAwarded,
		xpGranted,
		pointsRevoked,
		reputationGranted,
		notificationsEnqueued,
		notificationsDispatched,
	)
}
