package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/notification"
)

func TestTransition_LabelsOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Transition("stock correction", audit.ActionApprove, nil)
	m.Transition("stock correction", audit.ActionApprove, nil)
	m.Transition("stock correction", audit.ActionApprove, apperror.NewForbidden("Forbidden"))
	m.Transition("sales invoice", audit.ActionReject, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("stock correction", "approve", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("stock correction", "approve", apperror.CodeForbidden)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("sales invoice", "reject", "error")))
}

func TestNotificationFailed(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.NotificationFailed("sales invoice", notification.KindCancellation)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifyFailed.WithLabelValues("sales invoice", "cancellation")))
}

func TestTracker(t *testing.T) {
	m := New(prometheus.NewRegistry())

	assert.NoError(t, m.Track("form:reminder").End(nil))
	boom := errors.New("smtp down")
	assert.Equal(t, boom, m.Track("form:reminder").End(boom))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("form:reminder", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("form:reminder", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobFailures.WithLabelValues("form:reminder")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.Transition("stock correction", audit.ActionCreate, nil)
	m.NotificationFailed("stock correction", notification.KindApproval)
	m.ObserveRequest(http.MethodGet, "/x", 200, time.Millisecond)
	assert.NoError(t, m.Track("job").End(nil))
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest(http.MethodPost, "/api/v1/stock-corrections", http.StatusCreated, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `backoffice_http_requests_total{method="POST",route="/api/v1/stock-corrections",status="201"} 1`)
}
