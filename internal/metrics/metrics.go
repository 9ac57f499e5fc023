package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentsouk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentsouk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AgentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentsouk_agent_runs_total",
			Help: "Total number of agent runs",
		},
		[]string{"agent", "status"},
	)

	WalletDebitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentsouk_wallet_debits_total",
			Help: "Total number of wallet debits",
		},
		[]string{"status"},
	)

	WalletTopUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentsouk_wallet_topups_total",
			Help: "Total number of confirmed wallet top-ups",
		},
	)

	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentsouk_checkout_sessions_total",
			Help: "Total number of checkout sessions by outcome",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentsouk_notifications_total",
			Help: "Total number of notifications by type and status",
		},
		[]string{"type", "status"},
	)

	NotifyQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentsouk_notify_queue_length",
			Help: "Current length of the notification queue",
		},
	)

	ChatTurnsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentsouk_chat_turns_total",
			Help: "Total number of incident-analyst chat turns",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordAgentRun(agent, status string) {
	AgentRunsTotal.WithLabelValues(agent, status).Inc()
}

func RecordWalletDebit(status string) {
	WalletDebitsTotal.WithLabelValues(status).Inc()
}

func RecordWalletTopUp() {
	WalletTopUpsTotal.Inc()
}

func RecordCheckoutSession(status string) {
	CheckoutSessionsTotal.WithLabelValues(status).Inc()
}

func RecordNotification(notificationType, status string) {
	NotificationsTotal.WithLabelValues(notificationType, status).Inc()
}

func RecordChatTurn() {
	ChatTurnsTotal.Inc()
}
