package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// participation lifecycle.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	registrations      *prometheus.CounterVec
	cancellations      prometheus.Counter
	attendanceMarks    *prometheus.CounterVec
	feedbackSubmitted  prometheus.Counter
	certificatesIssued prometheus.Counter
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
}

// NewMetricsService registers the collectors on a dedicated registry.
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

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Total registrations by type",
	}, []string{"type"})

	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cancellations_total",
		Help: "Total cancelled registrations",
	})

	attendanceMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_marks_total",
		Help: "Total attendance marks by outcome",
	}, []string{"outcome"})

	feedbackSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedback_submitted_total",
		Help: "Total feedback submissions",
	})

	certificatesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Total certificates issued",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total status cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total status cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, registrations, cancellations,
		attendanceMarks, feedbackSubmitted, certificatesIssued, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		registrations:      registrations,
		cancellations:      cancellations,
		attendanceMarks:    attendanceMarks,
		feedbackSubmitted:  feedbackSubmitted,
		certificatesIssued: certificatesIssued,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordRegistration counts a completed registration by type.
func (m *MetricsService) RecordRegistration(registrationType string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(registrationType).Inc()
}

// RecordCancellation counts a cancelled registration.
func (m *MetricsService) RecordCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// RecordAttendance counts an attendance mark by outcome.
func (m *MetricsService) RecordAttendance(present bool) {
	if m == nil {
		return
	}
	outcome := "present"
	if !present {
		outcome = "absent"
	}
	m.attendanceMarks.WithLabelValues(outcome).Inc()
}

// RecordFeedback counts a feedback submission.
func (m *MetricsService) RecordFeedback() {
	if m == nil {
		return
	}
	m.feedbackSubmitted.Inc()
}

// RecordCertificate counts an issued certificate.
func (m *MetricsService) RecordCertificate() {
	if m == nil {
		return
	}
	m.certificatesIssued.Inc()
}

// RecordCacheLookup counts a status cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
