package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/properties/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/properties/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/properties/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}

func TestObserveHelpers(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveJob("payment-reminders", "ok", time.Second)
	m.ObserveJob("payment-reminders", "skipped", 0)
	m.ObserveNotification("email", nil)
	m.ObserveNotification("email", errors.New("smtp down"))
	m.ObserveDrop()
	m.ObserveLogin(false)
	m.ObserveTransition("contract", "terminated")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("payment-reminders", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("email", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LifecycleEvents.WithLabelValues("contract", "terminated")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveJob("x", "ok", time.Second)
	m.ObserveNotification("log", nil)
	m.ObserveDrop()
	m.ObserveLogin(true)
	m.ObserveTransition("payment", "paid")
}
