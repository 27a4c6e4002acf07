package middleware

import (
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goshop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goshop_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goshop_order_operations_total",
			Help: "Total number of order operations",
		},
		[]string{"operation", "status"},
	)
)

// Prometheus 收集 HTTP 指标。path 取路由模板而非真实路径，
// 避免按 ID 打散指标维度。
func Prometheus() iris.Handler {
	return func(ctx iris.Context) {
		start := time.Now()

		ctx.Next()

		path := ctx.GetCurrentRoute().Path()
		if path == "" {
			path = ctx.Path()
		}
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ctx.GetStatusCode())

		httpRequestsTotal.WithLabelValues(ctx.Method(), path, status).Inc()
		httpRequestDuration.WithLabelValues(ctx.Method(), path, status).Observe(duration)
	}
}

// RecordOrderOperation 记录订单操作指标
func RecordOrderOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	orderOperations.WithLabelValues(operation, status).Inc()
}
