// Package metrics exposes Prometheus collectors for approval transitions,
// notification delivery, background tasks and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backoffice/internal/core/apperror"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/notification"
)

const namespace = "backoffice"

// Metrics holds every collector of the process.
type Metrics struct {
	transitions  *prometheus.CounterVec
	notifyFailed *prometheus.CounterVec
	jobRuns      *prometheus.CounterVec
	jobFailures  *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	gatherer     prometheus.Gatherer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New registers the collectors on reg. A nil reg uses the default
// registry, registered once per process.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		defaultOnce.Do(func() {
			defaultMetrics = build(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
		})
		return defaultMetrics
	}
	return build(reg, reg)
}

func build(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_transitions_total",
			Help:      "Approval transitions partitioned by document, action and outcome.",
		}, []string{"document", "action", "outcome"}),
		notifyFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notices that could not be handed to the queue.",
		}, []string{"document", "kind"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Task executions partitioned by task type and status.",
		}, []string{"job", "status"}),
		jobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failures_total",
			Help:      "Failed task executions.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of task executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests partitioned by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: g,
	}
	reg.MustRegister(m.transitions, m.notifyFailed, m.jobRuns, m.jobFailures, m.jobDuration, m.httpRequests, m.httpDuration)
	return m
}

// Transition counts one approval transition. The outcome is "success" or
// the error code of err.
func (m *Metrics) Transition(document string, action audit.Action, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(document, string(action), Outcome(err)).Inc()
}

// NotificationFailed counts a notice that could not be queued.
func (m *Metrics) NotificationFailed(document string, kind notification.Kind) {
	if m == nil {
		return
	}
	m.notifyFailed.WithLabelValues(document, string(kind)).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Outcome labels err for the transition counter.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Code
	}
	return "error"
}

// Tracker instruments a single task run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records duration and status and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.jobFailures.WithLabelValues(t.job).Inc()
	}
	t.metrics.jobRuns.WithLabelValues(t.job, status).Inc()
	t.metrics.jobDuration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}
