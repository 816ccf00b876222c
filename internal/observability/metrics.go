package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API, dispatch workers,
// and background sweeps.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	messagesSentTotal   *prometheus.CounterVec
	messagesFailedTotal *prometheus.CounterVec
	itemsSkippedTotal   *prometheus.CounterVec
	sendDuration        *prometheus.HistogramVec
	jobsFinishedTotal   *prometheus.CounterVec
	sweepRunsTotal      *prometheus.CounterVec
	sweepDuration       *prometheus.HistogramVec
	workerInflight      *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "messages_sent_total",
				Help:      "Total number of outreach messages delivered successfully.",
			},
			[]string{"channel"},
		),
		messagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "messages_failed_total",
				Help:      "Total number of send attempts that failed, by channel and reason.",
			},
			[]string{"channel", "reason"},
		),
		itemsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "items_skipped_total",
				Help:      "Total number of bulk job items skipped, by reason.",
			},
			[]string{"reason"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_engine",
				Name:      "send_duration_seconds",
				Help:      "Sender call duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		jobsFinishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "bulk_jobs_finished_total",
				Help:      "Total number of bulk jobs that reached a terminal state.",
			},
			[]string{"status"},
		),
		sweepRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_engine",
				Name:      "sweep_runs_total",
				Help:      "Total number of background sweep runs by sweep and result.",
			},
			[]string{"sweep", "result"},
		),
		sweepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_engine",
				Name:      "sweep_duration_seconds",
				Help:      "Background sweep duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"sweep"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "outreach_engine",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight bulk job item sends grouped by channel.",
			},
			[]string{"channel"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.messagesSentTotal,
		m.messagesFailedTotal,
		m.itemsSkippedTotal,
		m.sendDuration,
		m.jobsFinishedTotal,
		m.sweepRunsTotal,
		m.sweepDuration,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncMessageSent(channel string) {
	if m == nil {
		return
	}
	m.messagesSentTotal.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) IncMessageFailed(channel string, reason string) {
	if m == nil {
		return
	}
	m.messagesFailedTotal.WithLabelValues(normalizeLabel(channel), normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncItemSkipped(reason string) {
	if m == nil {
		return
	}
	m.itemsSkippedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.sendDuration.WithLabelValues(normalizeLabel(channel)).Observe(seconds)
}

func (m *Metrics) IncJobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsFinishedTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) IncSweepRun(sweep string, result string) {
	if m == nil {
		return
	}
	m.sweepRunsTotal.WithLabelValues(normalizeLabel(sweep), normalizeLabel(result)).Inc()
}

func (m *Metrics) ObserveSweepDuration(sweep string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.sweepDuration.WithLabelValues(normalizeLabel(sweep)).Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight(channel string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) DecWorkerInFlight(channel string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(channel)).Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
