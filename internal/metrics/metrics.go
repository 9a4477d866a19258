package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 结果标签
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

var (
	cartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	snapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_snapshot_writes_total",
			Help: "Cart snapshot writes by result",
		},
		[]string{"result"},
	)

	snapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_snapshot_loads_total",
			Help: "Cart snapshot loads by source",
		},
		[]string{"source"},
	)

	snapshotRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_snapshot_repairs_total",
			Help: "Lines dropped or repaired while hydrating a snapshot",
		},
		[]string{"reason"},
	)

	checkoutHandoffs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_handoffs_total",
			Help: "Checkout handoff deliveries by result",
		},
		[]string{"result"},
	)

	rateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_rate_limit_decisions_total",
			Help: "Rate limiter decisions by rule and result",
		},
		[]string{"rule", "result"},
	)

	activeCarts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_active_sessions",
			Help: "Carts currently held in memory",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)
)

// CartMutation 记录一次购物车变更
func CartMutation(op, result string) {
	cartMutations.WithLabelValues(op, result).Inc()
}

// SnapshotWrite 记录一次快照写入
func SnapshotWrite(result string) {
	snapshotWrites.WithLabelValues(result).Inc()
}

// SnapshotLoad 记录快照加载来源（cache / database / empty）
func SnapshotLoad(source string) {
	snapshotLoads.WithLabelValues(source).Inc()
}

// SnapshotRepair 记录快照修复
func SnapshotRepair(reason string, count int) {
	if count <= 0 {
		return
	}
	snapshotRepairs.WithLabelValues(reason).Add(float64(count))
}

// CheckoutHandoff 记录结账交接投递
func CheckoutHandoff(result string) {
	checkoutHandoffs.WithLabelValues(result).Inc()
}

// RateLimitDecision 记录一次限流判定
func RateLimitDecision(rule, result string) {
	rateLimitDecisions.WithLabelValues(rule, result).Inc()
}

// SetActiveCarts 设置内存中的购物车数量
func SetActiveCarts(n int) {
	activeCarts.Set(float64(n))
}

// Middleware HTTP 请求指标中间件
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := float64(time.Since(start).Milliseconds())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 指标暴露端点
func Handler() http.Handler {
	return promhttp.Handler()
}
