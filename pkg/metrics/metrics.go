package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 远程同步延迟（秒）
	RemoteSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "titan_remote_sync_duration_seconds",
			Help:    "Remote store call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"op", "entity", "status"},
	)

	// 远程同步失败计数
	SyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titan_sync_failures_total",
			Help: "Total number of failed remote sync calls",
		},
		[]string{"entity", "kind"},
	)

	// 本地快照写入计数
	LocalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titan_local_writes_total",
			Help: "Total number of local snapshot writes",
		},
		[]string{"key", "status"},
	)

	// XP 发放
	XPAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titan_xp_awarded_total",
			Help: "Total XP awarded",
		},
		[]string{"source"}, // source: habit, focus, manual
	)

	// 习惯打卡
	HabitToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titan_habit_toggles_total",
			Help: "Total number of habit toggles",
		},
		[]string{"direction"}, // direction: on, off
	)

	// 慢查询计数
	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titan_db_slow_queries_total",
			Help: "Total number of remote queries above the slow threshold",
		},
		[]string{"sql"},
	)

	// 慢查询耗时
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "titan_db_slow_query_duration_seconds",
			Help:    "Duration of slow remote queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "titan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 教练回退次数
	CoachFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titan_coach_fallbacks_total",
			Help: "Total number of AI coach requests answered with the fallback text",
		},
		[]string{"kind"}, // kind: insight, review
	)
)

// RecordRemoteSync 记录远程同步延迟
func RecordRemoteSync(op, entity string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RemoteSyncDuration.WithLabelValues(op, entity, status).Observe(duration.Seconds())
}

// IncrementSyncFailure 增加同步失败计数
func IncrementSyncFailure(entity, kind string) {
	SyncFailures.WithLabelValues(entity, kind).Inc()
}

// IncrementLocalWrite 增加本地写入计数
func IncrementLocalWrite(key string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LocalWrites.WithLabelValues(key, status).Inc()
}

// AddXP 记录发放的 XP
func AddXP(source string, amount int64) {
	XPAwarded.WithLabelValues(source).Add(float64(amount))
}

// IncrementHabitToggle 增加打卡计数
func IncrementHabitToggle(completed bool) {
	direction := "off"
	if completed {
		direction = "on"
	}
	HabitToggles.WithLabelValues(direction).Inc()
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueries.WithLabelValues(sql).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementCoachFallback 记录教练回退
func IncrementCoachFallback(kind string) {
	CoachFallbacks.WithLabelValues(kind).Inc()
}
