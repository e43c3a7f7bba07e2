package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newMetricsRouter(m *HTTPMetrics, h http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(m.Middleware("promotion-service"))
	r.Get("/promotions/{id}", h)
	return r
}

func TestHTTPMetrics_CountsByRoutePattern(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	r := newMetricsRouter(m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/promotions/"+id, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("promotion-service", "GET", "/promotions/{id}", "200"))
	assert.Equal(t, float64(3), got)
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHTTPMetrics_RecordsStatus(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	r := newMetricsRouter(m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/promotions/7", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues("promotion-service", "GET", "/promotions/{id}", "404"))
	assert.Equal(t, float64(1), got)
}

func TestHTTPMetrics_InFlight(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	var during float64
	r := newMetricsRouter(m, func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(m.inFlight.WithLabelValues("promotion-service"))
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/promotions/1", nil))

	assert.Equal(t, float64(1), during)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inFlight.WithLabelValues("promotion-service")))
}

func TestNewHTTPMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewHTTPMetrics(reg)
	assert.Panics(t, func() { NewHTTPMetrics(reg) })
}
