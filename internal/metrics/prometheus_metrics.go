package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// PrometheusMetrics owns the collectors for catalog-service
type PrometheusMetrics struct {
	// Products cache
	cacheLookups   *prometheus.CounterVec
	rendersTotal   *prometheus.CounterVec
	renderDuration prometheus.Histogram

	// Alerts
	alertsTotal *prometheus.CounterVec

	// Report jobs
	reportJobs        *prometheus.CounterVec
	reportDuration    *prometheus.HistogramVec
	reportQueueDepth  prometheus.Gauge
	reportWorkerCount prometheus.Gauge

	// HTTP
	httpRequests *prometheus.CounterVec

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry registers on registerer; tests pass a fresh prometheus.NewRegistry()
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "products",
		Name:      "cache_lookups_total",
		Help:      "Products cache lookups by outcome",
	}, []string{"outcome"}) // hit, negative_hit, miss, bypass, invalid_context

	pm.rendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "products",
		Name:      "renders_total",
		Help:      "Products renders by status",
	}, []string{"status"}) // success, no_data, error

	pm.renderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "products",
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering products JSON",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	pm.alertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alerts",
		Name:      "total",
		Help:      "Alerts by delivery status",
	}, []string{"status"}) // queued, sent, failed, dropped

	pm.reportJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "jobs_total",
		Help:      "Report jobs by report type and status",
	}, []string{"report_type", "status"})

	pm.reportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "job_duration_seconds",
		Help:      "Time from job start to blob stored",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"format"})

	pm.reportQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "queue_depth",
		Help:      "Report jobs waiting for a worker",
	})

	pm.reportWorkerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "workers",
		Help:      "Number of report workers",
	})

	pm.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	registerer.MustRegister(
		pm.cacheLookups,
		pm.rendersTotal,
		pm.renderDuration,
		pm.alertsTotal,
		pm.reportJobs,
		pm.reportDuration,
		pm.reportQueueDepth,
		pm.reportWorkerCount,
		pm.httpRequests,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("Catalog Prometheus metrics initialized", zap.String("namespace", namespace))
	return pm
}

func (pm *PrometheusMetrics) RecordCacheLookup(outcome string) {
	pm.cacheLookups.WithLabelValues(outcome).Inc()
}

func (pm *PrometheusMetrics) RecordRender(status string, seconds float64) {
	pm.rendersTotal.WithLabelValues(status).Inc()
	pm.renderDuration.Observe(seconds)
}

func (pm *PrometheusMetrics) RecordAlert(status string) {
	pm.alertsTotal.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) RecordReportJob(reportType, status string) {
	pm.reportJobs.WithLabelValues(reportType, status).Inc()
}

func (pm *PrometheusMetrics) RecordReportDuration(format string, seconds float64) {
	pm.reportDuration.WithLabelValues(format).Observe(seconds)
}

func (pm *PrometheusMetrics) UpdateReportQueueDepth(depth float64) {
	pm.reportQueueDepth.Set(depth)
}

func (pm *PrometheusMetrics) UpdateReportWorkers(count float64) {
	pm.reportWorkerCount.Set(count)
}

func (pm *PrometheusMetrics) RecordHTTPRequest(endpoint, status string) {
	pm.httpRequests.WithLabelValues(endpoint, status).Inc()
}

// ServeHTTP serves the Prometheus exposition format
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
