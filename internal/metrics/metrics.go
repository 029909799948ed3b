package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job run results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Collector holds the process metrics on its own registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	leaseLost       *prometheus.CounterVec
	pagesFetched    *prometheus.CounterVec
	eventsForwarded *prometheus.CounterVec
	eventsSkipped   *prometheus.CounterVec
	cursorPage      prometheus.Gauge
	entriesPurged   prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_sync_job_runs_total",
			Help: "Scheduled job ticks by job and result",
		}, []string{"job", "result"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transaction_sync_job_duration_seconds",
			Help:    "Duration of scheduled job ticks that held the lease",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		leaseLost: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_sync_lease_lost_total",
			Help: "Leases lost while the job was still running",
		}, []string{"job"}),
		pagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_sync_pages_fetched_total",
			Help: "Gateway pages fetched by job",
		}, []string{"job"}),
		eventsForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_sync_events_forwarded_total",
			Help: "New or changed transactions forwarded to reporting",
		}, []string{"job"}),
		eventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_sync_events_skipped_total",
			Help: "Transactions cached without being forwarded because no report event could be built",
		}, []string{"job"}),
		cursorPage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "transaction_sync_cursor_page",
			Help: "Page the cursor points at after the last sync tick",
		}),
		entriesPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "transaction_sync_entries_purged_total",
			Help: "Expired store entries physically removed",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordJobRun(job, result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.jobRuns.WithLabelValues(job, result).Inc()
	if result != ResultSkipped {
		c.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	}
}

func (c *Collector) RecordLeaseLost(job string) {
	if c == nil {
		return
	}
	c.leaseLost.WithLabelValues(job).Inc()
}

func (c *Collector) RecordPageFetched(job string) {
	if c == nil {
		return
	}
	c.pagesFetched.WithLabelValues(job).Inc()
}

func (c *Collector) RecordEventsForwarded(job string, count int) {
	if c == nil {
		return
	}
	c.eventsForwarded.WithLabelValues(job).Add(float64(count))
}

func (c *Collector) RecordEventsSkipped(job string, count int) {
	if c == nil || count == 0 {
		return
	}
	c.eventsSkipped.WithLabelValues(job).Add(float64(count))
}

func (c *Collector) SetCursorPage(page int) {
	if c == nil {
		return
	}
	c.cursorPage.Set(float64(page))
}

func (c *Collector) RecordPurged(count int64) {
	if c == nil {
		return
	}
	c.entriesPurged.Add(float64(count))
}
