package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// MetricsCollector adapts PrometheusMetrics to the recorder interfaces of
// the catalog, alerts and reports packages.
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

func NewMetricsCollector(namespace string, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, logger),
		logger:     logger,
	}
}

func NewMetricsCollectorWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetricsWithRegistry(namespace, registerer, logger),
		logger:     logger,
	}
}

// RecordLookup implements catalog.Recorder
func (mc *MetricsCollector) RecordLookup(outcome string) {
	mc.prometheus.RecordCacheLookup(outcome)
}

// RecordRender implements catalog.Recorder
func (mc *MetricsCollector) RecordRender(status string, duration time.Duration) {
	mc.prometheus.RecordRender(status, duration.Seconds())
}

// RecordAlert implements alerts.Recorder
func (mc *MetricsCollector) RecordAlert(status string) {
	mc.prometheus.RecordAlert(status)
}

// RecordJob implements reports.Recorder
func (mc *MetricsCollector) RecordJob(reportType, status string) {
	mc.prometheus.RecordReportJob(reportType, status)
}

// RecordJobDuration implements reports.Recorder
func (mc *MetricsCollector) RecordJobDuration(format string, duration time.Duration) {
	mc.prometheus.RecordReportDuration(format, duration.Seconds())
}

// UpdateQueueDepth implements reports.Recorder
func (mc *MetricsCollector) UpdateQueueDepth(depth int) {
	mc.prometheus.UpdateReportQueueDepth(float64(depth))
}

func (mc *MetricsCollector) UpdateWorkers(count int) {
	mc.prometheus.UpdateReportWorkers(float64(count))
}

func (mc *MetricsCollector) RecordHTTPRequest(endpoint string, statusCode int) {
	mc.prometheus.RecordHTTPRequest(endpoint, strconv.Itoa(statusCode))
}

func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
