package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ consume latency in milliseconds.
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue", "outcome"},
	)

	AssistantCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_call_latency_ms",
			Help:    "Conversational assistant call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		},
		[]string{"responder", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	ProgressRecomputeCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goal_progress_recompute_total",
			Help: "Goal progress recomputations after milestone changes",
		},
	)

	TaskToggleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_toggle_total",
			Help: "Task completion toggles",
		},
		[]string{"kind"},
	)

	CacheLookupCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookup_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"}, // result: hit, miss, error
	)

	OutboxPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_total",
			Help: "Outbox events published to the broker",
		},
		[]string{"routing_key", "status"},
	)
)

func RecordMQConsumeLatency(routingKey, queue, outcome string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue, outcome).Observe(float64(duration.Milliseconds()))
}

func RecordAssistantCallLatency(responder, status string, duration time.Duration) {
	AssistantCallLatency.WithLabelValues(responder, status).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery labels by the leading SQL verb to keep cardinality low.
func IncrementSlowQuery(operation string) {
	SlowQueryCount.WithLabelValues(operation).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementProgressRecompute() {
	ProgressRecomputeCount.Inc()
}

func IncrementTaskToggle(kind string) {
	TaskToggleCount.WithLabelValues(kind).Inc()
}

func IncrementCacheLookup(cache, result string) {
	CacheLookupCount.WithLabelValues(cache, result).Inc()
}

func IncrementOutboxPublish(routingKey, status string) {
	OutboxPublishCount.WithLabelValues(routingKey, status).Inc()
}
