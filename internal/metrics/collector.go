// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 生成指标
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	imagesGenerated    *prometheus.CounterVec
	stageTransitions   *prometheus.CounterVec

	// 轮询指标
	pollAttempts       *prometheus.CounterVec
	taskStatusChanges  *prometheus.CounterVec
	generationsRunning prometheus.Gauge

	// 下载指标
	downloadsTotal   *prometheus.CounterVec
	downloadBytes    prometheus.Histogram
	downloadDuration prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.1, 1, 10, 60, 300, 900, 1800},
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 生成指标
	c.generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of text-to-image generations",
		},
		[]string{"model", "status"},
	)

	// 一次生成最长约 25 分钟
	c.generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generation duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 900, 1500},
		},
		[]string{"model"},
	)

	c.imagesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_generated_total",
			Help:      "Total number of images returned to callers",
		},
		[]string{"model"},
	)

	c.stageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_stage_transitions_total",
			Help:      "Total number of generation stage transitions",
		},
		[]string{"from_stage", "to_stage"},
	)

	// 轮询指标
	c.pollAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Total number of task status queries",
		},
		[]string{"outcome"}, // pending, transport_error, succeed, failed, rejected
	)

	c.taskStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_status_changes_total",
			Help:      "Total number of observed remote task status changes",
		},
		[]string{"status"},
	)

	c.generationsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generations_in_flight",
			Help:      "Number of generations currently running",
		},
	)

	// 下载指标
	c.downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_downloads_total",
			Help:      "Total number of result image downloads",
		},
		[]string{"status"},
	)

	c.downloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_download_size_bytes",
			Help:      "Downloaded image size in bytes",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8),
		},
	)

	c.downloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_download_duration_seconds",
			Help:      "Image download duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🖼️ 生成指标记录
// =============================================================================

// RecordGeneration 记录一次生成的结果
func (c *Collector) RecordGeneration(model, status string, duration time.Duration, images int) {
	c.generationsTotal.WithLabelValues(model, status).Inc()
	c.generationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if images > 0 {
		c.imagesGenerated.WithLabelValues(model).Add(float64(images))
	}
}

// RecordStageTransition 记录阶段转换
func (c *Collector) RecordStageTransition(from, to string) {
	c.stageTransitions.WithLabelValues(from, to).Inc()
	switch {
	case from == "idle":
		c.generationsRunning.Inc()
	case to == "done" || to == "errored":
		c.generationsRunning.Dec()
	}
}

// RecordPollAttempt 记录一次轮询查询
func (c *Collector) RecordPollAttempt(outcome string) {
	c.pollAttempts.WithLabelValues(outcome).Inc()
}

// RecordTaskStatusChange 记录远端任务状态变化
func (c *Collector) RecordTaskStatusChange(status string) {
	c.taskStatusChanges.WithLabelValues(status).Inc()
}

// RecordImageDownload 记录一次图片下载
func (c *Collector) RecordImageDownload(status string, bytes int64, duration time.Duration) {
	c.downloadsTotal.WithLabelValues(status).Inc()
	c.downloadDuration.Observe(duration.Seconds())
	if bytes > 0 {
		c.downloadBytes.Observe(float64(bytes))
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
