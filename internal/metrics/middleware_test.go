package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/retrieve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	req := httptest.NewRequest("POST", "/v1/retrieve", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/retrieve", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/v1/ask", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Post("/v1/retrieve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	tests := []struct {
		method, path   string
		expectedStatus string
	}{
		{"GET", "/health", "200"},
		{"POST", "/v1/ask", "400"},
		{"POST", "/v1/retrieve", "503"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.expectedStatus))
			if val < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.path, tc.expectedStatus, val)
			}
		})
	}
}

func TestRegisterHTTPMetrics_Idempotent(t *testing.T) {
	RegisterHTTPMetrics()
	RegisterHTTPMetrics()

	for name, c := range map[string]prometheus.Collector{
		"http_request_duration_seconds": httpRequestDuration,
		"http_requests_total":           httpRequestsTotal,
	} {
		var are prometheus.AlreadyRegisteredError
		if err := prometheus.Register(c); !errors.As(err, &are) {
			t.Errorf("%s: expected AlreadyRegisteredError, got %v", name, err)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/v1/retrieve", "/v1/retrieve"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestObserveRetrieval(t *testing.T) {
	before := testutil.ToFloat64(RetrievalRequestsTotal.WithLabelValues("no_rejections"))
	rejectedBefore := testutil.ToFloat64(PredicateRejectionsTotal)

	ObserveRetrieval("no_rejections", "gap", 2, 3, 5)

	if got := testutil.ToFloat64(RetrievalRequestsTotal.WithLabelValues("no_rejections")); got != before+1 {
		t.Errorf("retrieval_requests_total = %f, want %f", got, before+1)
	}
	if got := testutil.ToFloat64(PredicateRejectionsTotal); got != rejectedBefore+3 {
		t.Errorf("predicate_rejections_total = %f, want %f", got, rejectedBefore+3)
	}
	if testutil.ToFloat64(CutoffStrategyTotal.WithLabelValues("gap")) < 1 {
		t.Error("expected cutoff_strategy_total{strategy=gap} >= 1")
	}
}

func TestMetricsHandler_ViaPromhttp(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(RetrievalRequestsTotal)
	RetrievalRequestsTotal.WithLabelValues("target_reached").Inc()

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "lorekeeper_retrieval_requests_total") {
		t.Errorf("metrics output missing retrieval counter:\n%s", body)
	}
}
