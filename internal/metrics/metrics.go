// Package metrics exposes scan pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lumnic12/attend/internal/attend/types"
)

// Collector implements service.Metrics on top of Prometheus collectors.
type Collector struct {
	scans          *prometheus.CounterVec
	scanLatency    prometheus.Histogram
	timeouts       prometheus.Counter
	queueDepth     prometheus.Gauge
	sinkFailures   prometheus.Counter
	sessionsOpened prometheus.Counter
	sessionsMarked prometheus.Counter
	httpRequests   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attend_scans_total",
			Help: "Badge scans processed by the worker, by result.",
		}, []string{"result"}),
		scanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attend_scan_duration_seconds",
			Help:    "Time spent verifying one badge scan.",
			Buckets: prometheus.DefBuckets,
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attend_scan_timeouts_total",
			Help: "Scans whose caller stopped waiting before a result.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attend_scan_queue_depth",
			Help: "Scans waiting for the worker.",
		}),
		sinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attend_sink_failures_total",
			Help: "Attendance records that could not be written.",
		}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attend_sessions_started_total",
			Help: "Attendance sessions opened.",
		}),
		sessionsMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attend_sessions_marked_total",
			Help: "Attendance sessions marked present.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attend_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status_code"}),
	}

	reg.MustRegister(
		c.scans,
		c.scanLatency,
		c.timeouts,
		c.queueDepth,
		c.sinkFailures,
		c.sessionsOpened,
		c.sessionsMarked,
		c.httpRequests,
	)
	return c
}

func (c *Collector) ScanProcessed(result types.ScanResult, elapsed time.Duration) {
	c.scans.WithLabelValues(string(result)).Inc()
	c.scanLatency.Observe(elapsed.Seconds())
}

func (c *Collector) ScanTimedOut()    { c.timeouts.Inc() }
func (c *Collector) QueueDepth(n int) { c.queueDepth.Set(float64(n)) }
func (c *Collector) SinkFailed()      { c.sinkFailures.Inc() }
func (c *Collector) SessionStarted()  { c.sessionsOpened.Inc() }
func (c *Collector) SessionMarked()   { c.sessionsMarked.Inc() }

// HTTPRequest counts one served request.
func (c *Collector) HTTPRequest(route string, status int) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
