package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestIPAllowlist(t *testing.T) {
	mw := IPAllowlist([]string{"127.0.0.0/8", "10.0.0.0/8", "not-a-cidr"}, discardLogger())
	h := mw(okHandler(http.StatusOK))

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:5555", http.StatusOK},
		{"10.2.3.4:80", http.StatusOK},
		{"[::ffff:10.2.3.4]:80", http.StatusOK},
		{"192.168.1.1:12345", http.StatusForbidden},
		{"garbage", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRegisterPprof_DeniedOutsideAllowlist(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"10.0.0.0/8"}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.RemoteAddr = "192.168.0.9:1000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestRegisterPprof_Allowed(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.1/32"}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.RemoteAddr = "127.0.0.1:1000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
