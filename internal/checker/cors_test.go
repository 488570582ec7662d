package checker

import (
	"net/http"
	"testing"
)

func TestAnalyzeCORS(t *testing.T) {
	if AnalyzeCORS(http.Header{}) != nil {
		t.Fatal("expected nil report when no CORS headers are sent")
	}

	headers := http.Header{}
	headers.Set("Access-Control-Allow-Origin", "*")
	headers.Set("Access-Control-Allow-Credentials", "true")
	headers.Set("Access-Control-Allow-Headers", "*")

	report := AnalyzeCORS(headers)
	if report == nil || !report.AllowsAnyOrigin {
		t.Fatalf("expected wildcard origin report, got %+v", report)
	}
	if len(report.Issues) != 3 {
		t.Fatalf("expected 3 issues, got %v", report.Issues)
	}
}

func TestAnalyzeCORS_ReflectedOriginNeedsVary(t *testing.T) {
	headers := http.Header{}
	headers.Set("Access-Control-Allow-Origin", "https://app.example.com")

	report := AnalyzeCORS(headers)
	if report == nil || len(report.Issues) != 1 {
		t.Fatalf("expected Vary issue, got %+v", report)
	}

	headers.Set("Vary", "Accept-Encoding, Origin")
	report = AnalyzeCORS(headers)
	if report == nil || len(report.Issues) != 0 || !report.VaryOrigin {
		t.Fatalf("expected clean report with Vary: Origin, got %+v", report)
	}
}
