// Package metrics 暴露 Prometheus 指标：HTTP 请求、秒杀闸门、异步任务与定时任务。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mall"

// 秒杀闸门拒绝原因
const (
	SeckillRejectDropped   = "dropped"
	SeckillRejectRateLimit = "rate_limit"
)

// 任务执行结果
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Collector 指标收集器，方法对 nil 接收者安全
type Collector struct {
	registry            *prometheus.Registry
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	seckillRejected     *prometheus.CounterVec
	taskTotal           *prometheus.CounterVec
	taskDuration        *prometheus.HistogramVec
	schedulerRuns       *prometheus.CounterVec
	schedulerProcessed  *prometheus.CounterVec
}

// New 创建独立注册表的收集器
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		seckillRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seckill_rejected_total",
				Help:      "Seckill requests rejected before reaching the order service",
			},
			[]string{"reason"},
		),
		taskTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_tasks_total",
				Help:      "Asynchronous tasks handled by the worker",
			},
			[]string{"task", "result"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_task_duration_seconds",
				Help:      "Asynchronous task handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		schedulerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_runs_total",
				Help:      "Periodic job runs",
			},
			[]string{"job", "result"},
		),
		schedulerProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_processed_total",
				Help:      "Entities processed by periodic jobs",
			},
			[]string{"job"},
		),
	}
}

// Registry 底层注册表
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler /metrics 处理器
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// GinMiddleware 记录请求数与耗时，按路由模板聚合
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil {
			ctx.Next()
			return
		}
		start := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// SeckillRejected 记录秒杀闸门拒绝
func (c *Collector) SeckillRejected(reason string) {
	if c == nil {
		return
	}
	c.seckillRejected.WithLabelValues(reason).Inc()
}

// ObserveTask 记录异步任务结果与耗时
func (c *Collector) ObserveTask(task string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	c.taskTotal.WithLabelValues(task, result).Inc()
	c.taskDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

// ObserveSchedulerRun 记录定时任务执行结果与处理数量
func (c *Collector) ObserveSchedulerRun(job, result string, processed int) {
	if c == nil {
		return
	}
	c.schedulerRuns.WithLabelValues(job, result).Inc()
	if processed > 0 {
		c.schedulerProcessed.WithLabelValues(job).Add(float64(processed))
	}
}
