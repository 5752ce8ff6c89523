// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal                 *prometheus.CounterVec
	linksTotal                 *prometheus.CounterVec
	feedProbesTotal            *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	taskFailuresTotal          prometheus.Counter
	activeWorkers              prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecorpus_pages_total",
				Help: "Total number of pages read, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		linksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecorpus_links_total",
				Help: "Total number of classified links, labeled by category.",
			},
			[]string{"category"},
		)

		feedProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitecorpus_feed_probes_total",
				Help: "Total number of guessed feed URLs probed, labeled by result.",
			},
			[]string{"result"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitecorpus_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by fetch mode.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		)

		taskFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitecorpus_task_failures_total",
				Help: "Total number of crawl tasks that failed outright.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitecorpus_active_workers",
				Help: "Number of workers currently reading a page.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one page read for the site of rawURL.
func ObservePage(rawURL string, status string) {
	Init()
	pagesTotal.WithLabelValues(SanitizeSite(rawURL), status).Inc()
}

// ObserveLinks adds n links to the category counter.
func ObserveLinks(category string, n int) {
	Init()
	if n > 0 {
		linksTotal.WithLabelValues(category).Add(float64(n))
	}
}

// ObserveFeedProbe counts one probed feed candidate.
func ObserveFeedProbe(accepted bool) {
	Init()
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	feedProbesTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records the latency of one fetch.
func ObserveFetch(mode string, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveTaskFailure counts a crawl task that produced no record.
func ObserveTaskFailure() {
	Init()
	taskFailuresTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
