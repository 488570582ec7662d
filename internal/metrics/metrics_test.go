package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLookup(t *testing.T) {
	m := New()
	m.ObserveLookup("tls", OutcomeOK, 150*time.Millisecond)
	m.ObserveLookup("tls", OutcomeTimeout, 20*time.Second)
	m.ObserveLookup("whois", OutcomeOK, time.Second)

	if got := testutil.CollectAndCount(m.LookupDuration); got != 3 {
		t.Fatalf("expected 3 label sets, got %d", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/tls", http.MethodPost, http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTP("/api/tls", http.MethodPost, http.StatusOK, 12*time.Millisecond)
	m.ObserveHTTP("/api/tls", http.MethodPost, http.StatusBadGateway, 5*time.Millisecond)

	ok := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/tls", http.MethodPost, "200"))
	if ok != 2 {
		t.Errorf("expected 2 successful requests, got %v", ok)
	}
	failed := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/tls", http.MethodPost, "502"))
	if failed != 1 {
		t.Errorf("expected 1 failed request, got %v", failed)
	}
}

func TestTrackScan(t *testing.T) {
	m := New()
	done := m.TrackScan()
	if v := testutil.ToFloat64(m.ScansInFlight); v != 1 {
		t.Fatalf("expected 1 scan in flight, got %v", v)
	}
	done()
	if v := testutil.ToFloat64(m.ScansInFlight); v != 0 {
		t.Fatalf("expected 0 scans in flight, got %v", v)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveLookup("tls", OutcomeOK, time.Second)
	m.ObserveHTTP("/", http.MethodGet, 200, time.Second)
	m.TrackScan()()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from disabled metrics, got %d", rec.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveLookup("domains", OutcomeOK, time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{"webcheck_lookup_duration_seconds_bucket", `lookup="domains"`, "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in exposition output", want)
		}
	}
}
