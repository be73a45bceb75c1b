package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinship_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kinship_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MessagesSent counts persisted chat messages by kind (user, system).
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinship_messages_sent_total",
		Help: "Total number of chat messages persisted",
	}, []string{"kind"})

	// NotificationsCreated counts notifications by action type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinship_notifications_created_total",
		Help: "Total number of notifications created",
	}, []string{"action"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kinship_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinship_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinship_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

const queryStartKey = "kinship:query_start"

// QueryMetricsPlugin is a gorm plugin that feeds DatabaseQueryLatency.
type QueryMetricsPlugin struct{}

// Name implements gorm.Plugin.
func (QueryMetricsPlugin) Name() string { return "kinship:query_metrics" }

// Initialize registers before/after callbacks on every gorm processor.
func (QueryMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("kinship:metrics_before_create", before),
		cb.Create().After("gorm:create").Register("kinship:metrics_after_create", after("create")),
		cb.Query().Before("gorm:query").Register("kinship:metrics_before_query", before),
		cb.Query().After("gorm:query").Register("kinship:metrics_after_query", after("query")),
		cb.Update().Before("gorm:update").Register("kinship:metrics_before_update", before),
		cb.Update().After("gorm:update").Register("kinship:metrics_after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("kinship:metrics_before_delete", before),
		cb.Delete().After("gorm:delete").Register("kinship:metrics_after_delete", after("delete")),
		cb.Row().Before("gorm:row").Register("kinship:metrics_before_row", before),
		cb.Row().After("gorm:row").Register("kinship:metrics_after_row", after("row")),
		cb.Raw().Before("gorm:raw").Register("kinship:metrics_before_raw", before),
		cb.Raw().After("gorm:raw").Register("kinship:metrics_after_raw", after("raw")),
	)
}
