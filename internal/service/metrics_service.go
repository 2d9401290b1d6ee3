package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	approvalsTotal  prometheus.Counter
	emailsSent      prometheus.Counter
	emailsFailed    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	approvalsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "staffing_approvals_total",
		Help: "Total approved staffing batches",
	})

	emailsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Total emails delivered",
	})

	emailsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emails_failed_total",
		Help: "Total email delivery failures",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, approvalsTotal, emailsSent, emailsFailed, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		approvalsTotal:  approvalsTotal,
		emailsSent:      emailsSent,
		emailsFailed:    emailsFailed,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// IncApprovals counts one committed approval batch.
func (m *MetricsService) IncApprovals() {
	if m == nil {
		return
	}
	m.approvalsTotal.Inc()
}

// IncEmailSent counts one delivered email.
func (m *MetricsService) IncEmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}

// IncEmailFailed counts one failed delivery attempt.
func (m *MetricsService) IncEmailFailed() {
	if m == nil {
		return
	}
	m.emailsFailed.Inc()
}
