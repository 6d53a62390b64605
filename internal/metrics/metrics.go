package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "etuition", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "etuition", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	ApplicationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "etuition", Name: "applications_created_total", Help: "Tutor applications stored",
	})
	CounterCorrections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "etuition", Name: "counter_corrections_total", Help: "applicantsCount values rewritten by the reconciler",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "etuition", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, ApplicationsCreated, CounterCorrections, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveRequest records one finished HTTP request under its route pattern.
func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
