package kit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Upstream *prometheus.CounterVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_http_requests_total",
				Help: "Total storefront HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "storefront_http_request_duration_seconds",
				Help: "Storefront HTTP latency",
			},
			[]string{"method", "route"},
		),
		Upstream: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_upstream_requests_total",
				Help: "Requests issued to the commerce backend",
			},
			[]string{"endpoint", "outcome"},
		),
	}

	reg.MustRegister(m.Requests, m.Latency, m.Upstream)
	return m
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(sw, r)

			route := RoutePatternOrPath(r)
			m.Latency.WithLabelValues(r.Method, route).
				Observe(time.Since(start).Seconds())
			m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}

// CountUpstream records one call to the commerce backend.
func (m *Metrics) CountUpstream(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Upstream.WithLabelValues(endpoint, outcome).Inc()
}
