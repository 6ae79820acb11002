package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	DBSlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation", "table"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 任务操作计数
	TaskActionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_action_total",
			Help: "Total number of task actions by outcome",
		},
		[]string{"action", "outcome"}, // action: create, update, toggle, delete; outcome: ok, rejected, failed
	)

	// 修改密码计数
	PasswordChangeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "password_change_total",
			Help: "Total number of password change attempts by flow and terminal state",
		},
		[]string{"flow", "outcome"}, // flow: logged_in, by_username; outcome: committed, rejected, failed
	)

	// 事件发布计数
	EventPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_total",
			Help: "Total number of domain events published to the broker",
		},
		[]string{"routing_key", "status"}, // status: ok, failed, breaker_open
	)
)

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(operation, table string) {
	DBSlowQueryCount.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementTaskAction 增加任务操作计数
func IncrementTaskAction(action, outcome string) {
	TaskActionCount.WithLabelValues(action, outcome).Inc()
}

// IncrementPasswordChange 增加修改密码计数
func IncrementPasswordChange(flow, outcome string) {
	PasswordChangeCount.WithLabelValues(flow, outcome).Inc()
}

// IncrementEventPublish 增加事件发布计数
func IncrementEventPublish(routingKey, status string) {
	EventPublishCount.WithLabelValues(routingKey, status).Inc()
}
