package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetrics_RecordsRequest(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	handler := HTTPMetrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"distance":12}`))
	req.Header.Set("Content-Length", "15")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	count := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("POST", "/predict", "200"))
	if count != 1 {
		t.Errorf("http_requests_total = %v, want 1", count)
	}
}

func TestHTTPMetrics_SkipsHealth(t *testing.T) {
	metrics := NewMetrics()

	handler := HTTPMetrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	count := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/health", "200"))
	if count != 0 {
		t.Errorf("http_requests_total for /health = %v, want 0", count)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/predict", "/predict"},
		{"/paystack/webhook", "/paystack/webhook"},
		{"/track/status", "/track/status"},
		{"/unknown/route/123", "other"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMetrics_RegisterTwiceFails(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := metrics.Register(reg); err == nil {
		t.Error("second Register() expected duplicate registration error")
	}
}
