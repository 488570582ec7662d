package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	t.Run("generates request ID when not provided", func(t *testing.T) {
		var fromContext string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromContext = GetRequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if len(fromContext) != 16 {
			t.Errorf("expected 16-character request ID in context, got %q", fromContext)
		}
		if rec.Header().Get(RequestIDHeader) != fromContext {
			t.Errorf("expected response header to echo %q, got %q", fromContext, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("uses client-provided request ID", func(t *testing.T) {
		var actualID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actualID = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "client-request-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if actualID != "client-request-123" {
			t.Errorf("expected client request ID, got %q", actualID)
		}
	})

	t.Run("replaces unsafe client IDs", func(t *testing.T) {
		for _, bad := range []string{"id with spaces", "line\nbreak", strings.Repeat("a", 65)} {
			var actualID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actualID = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, bad)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if actualID == bad || len(actualID) != 16 {
				t.Errorf("expected %q to be replaced, got %q", bad, actualID)
			}
		}
	})

	t.Run("GetRequestID returns empty string when not set", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if id := GetRequestID(req.Context()); id != "" {
			t.Errorf("expected empty string, got %q", id)
		}
	})

	t.Run("generates unique IDs for different requests", func(t *testing.T) {
		ids := make(map[string]bool)
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ids[GetRequestID(r.Context())] = true
		}))
		for i := 0; i < 100; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}
		if len(ids) != 100 {
			t.Errorf("expected 100 unique IDs, got %d", len(ids))
		}
	})
}

func TestGenerateRequestID(t *testing.T) {
	id := generateRequestID()
	if len(id) != 16 {
		t.Fatalf("expected length 16, got %d", len(id))
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("expected hex character, got %c", c)
		}
	}
	if id == generateRequestID() {
		t.Error("generateRequestID returned same ID twice")
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var observedStatus int
	var observedElapsed time.Duration
	handler := RequestID(AccessLog(zap.New(core), func(r *http.Request, status int, elapsed time.Duration) {
		observedStatus = status
		observedElapsed = elapsed
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("hello"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/tls", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "abc-123" || fields["path"] != "/api/tls" || fields["method"] != http.MethodPost {
		t.Errorf("unexpected log fields %v", fields)
	}
	if fields["status"] != int64(http.StatusAccepted) || fields["bytes"] != int64(5) {
		t.Errorf("unexpected status/bytes %v / %v", fields["status"], fields["bytes"])
	}
	if observedStatus != http.StatusAccepted || observedElapsed < 0 {
		t.Errorf("observer got status %d elapsed %v", observedStatus, observedElapsed)
	}
}

func TestResponseRecorder_ImplicitOK(t *testing.T) {
	rec := &ResponseRecorder{ResponseWriter: httptest.NewRecorder(), Status: http.StatusOK}
	_, _ = rec.Write([]byte("x"))
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.Status != http.StatusOK {
		t.Errorf("status must be fixed by the first write, got %d", rec.Status)
	}
}
