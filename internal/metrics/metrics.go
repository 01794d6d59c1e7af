// Package metrics defines the Prometheus collectors shared by both binaries.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_analyzer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route", "status"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_analyzer_analyses_total",
			Help: "Analyze operations by final page state",
		},
		[]string{"outcome"},
	)

	AnalysesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "content_analyzer_analyses_in_flight",
			Help: "Analyses currently waiting on the analysis API",
		},
	)

	PersistTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_analyzer_persist_total",
			Help: "Stored record writes by status",
		},
		[]string{"status"},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_analyzer_extractions_total",
			Help: "Analysis API extractions by source",
		},
		[]string{"source"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_analyzer_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPDuration,
		AnalysesTotal,
		AnalysesInFlight,
		PersistTotal,
		ExtractionsTotal,
		CacheLookups,
	)
}

// Middleware records request latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
