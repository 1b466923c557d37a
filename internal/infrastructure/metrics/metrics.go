package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carmarket_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carmarket_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Live transport metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carmarket_ws_connections",
			Help: "Currently registered live connections",
		},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carmarket_ws_events_delivered_total",
			Help: "Live events queued to a connection",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carmarket_ws_events_dropped_total",
			Help: "Live events that could not be queued",
		},
		[]string{"reason"}, // "slow_consumer" or "closed"
	)

	RelayPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carmarket_relay_publish_failures_total",
			Help: "Relay publishes that fell back to local delivery",
		},
	)

	// Business metrics
	ChatsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carmarket_chats_opened_total",
			Help: "Open-chat calls by outcome",
		},
		[]string{"result"}, // "created" or "existing"
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carmarket_messages_sent_total",
			Help: "Messages persisted",
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carmarket_notifications_created_total",
			Help: "Durable notifications created",
		},
		[]string{"kind"},
	)

	PriceAlertsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carmarket_price_alerts_fired_total",
			Help: "Price alerts that crossed their target",
		},
	)

	PriceAlertSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carmarket_price_alert_sweep_seconds",
			Help:    "Price alert sweep duration",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carmarket_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"action"},
	)
)
