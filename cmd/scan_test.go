package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/webcheck/internal/api"
	"github.com/khanhnv2901/webcheck/internal/checker"
	"github.com/khanhnv2901/webcheck/internal/scan"
)

func sampleBundle() *scan.BundleResult {
	return &scan.BundleResult{
		URL:      "https://example.com",
		Firewall: &scan.FirewallReport{URL: "https://example.com", HasWAF: true, WAF: "Cloudflare", Evidence: []string{"cf-ray header"}},
		Domains:  &scan.DomainsReport{Domain: "example.com", Count: 2, Domains: []string{"example.com", "www.example.com"}},
		TLS:      &scan.TLSReport{URL: "https://example.com", Analyzer: "tlsGradingWorker", Grade: 95, LetterGrade: "A+", Version: "TLS 1.3"},
		Security: &scan.SecurityReport{
			URL: "https://example.com", Score: 60, MaxScore: 105, Grade: "C", Missing: []string{"Content-Security-Policy"},
			Client: &checker.ClientReport{Issues: []string{"HIGH: jQuery 3.4.1 (CVE-2020-11022)"}},
		},
		Errors: map[string]string{scan.LookupServerInfo: "lookup timed out"},
	}
}

func withoutColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})
}

func TestWriteBundleJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeBundle(&buf, sampleBundle(), outputJSON); err != nil {
		t.Fatalf("writeBundle: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if _, ok := decoded["scan"]; !ok {
		t.Fatalf("expected scan key, got %v", decoded)
	}
	if _, ok := decoded["server_info"]; ok {
		t.Fatal("failed lookup should be omitted")
	}
}

func TestWriteBundleYAMLUsesAPIKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := writeBundle(&buf, sampleBundle(), outputYAML); err != nil {
		t.Fatalf("writeBundle: %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML output: %v", err)
	}
	tls, ok := decoded["tls"].(map[string]any)
	if !ok {
		t.Fatalf("expected tls mapping, got %T", decoded["tls"])
	}
	if tls["lettergrade"] != "A+" {
		t.Fatalf("expected lettergrade key, got %v", tls)
	}
	if !strings.Contains(buf.String(), "hasWaf: true") {
		t.Fatalf("expected hasWaf key in YAML, got %s", buf.String())
	}
}

func TestWriteSummary(t *testing.T) {
	withoutColor(t)

	var buf bytes.Buffer
	if err := writeBundle(&buf, sampleBundle(), outputText); err != nil {
		t.Fatalf("writeBundle: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Scan of https://example.com",
		"Cloudflare",
		"2 names in certificate logs",
		"A+ (95/100) TLS 1.3",
		"C (60/105), 1 missing headers, 1 page issues",
		"server_info: lookup timed out",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
	if strings.Contains(out, "whois") {
		t.Fatalf("whois row should only appear when requested:\n%s", out)
	}
}

func TestWriteBundleUnknownFormat(t *testing.T) {
	var formatErr *OutputFormatError
	if err := writeBundle(&bytes.Buffer{}, sampleBundle(), "csv"); !errors.As(err, &formatErr) {
		t.Fatalf("expected OutputFormatError, got %v", err)
	}
}

func TestScanProgressCounts(t *testing.T) {
	var buf bytes.Buffer
	p := newScanProgress(3, &buf)
	p.Done(scan.LookupTLS, nil)
	p.Done(scan.LookupDomains, errors.New("boom"))
	p.Done(scan.LookupSecurity, nil)
	p.Finish()

	ok, fail := p.Counts()
	if ok != 2 || fail != 1 {
		t.Fatalf("expected 2 ok and 1 failure, got %d/%d", ok, fail)
	}
}

func TestNewScanServiceSatisfiesAPI(t *testing.T) {
	cfg := newCLIConfig()
	cfg.Lookup.Nameservers = []string{"127.0.0.1:5353"}
	svc, resolver := newScanService(cfg.Lookup, logger, nil)

	var _ api.ScanService = svc
	if svc.Timeout() != cfg.Lookup.Timeout {
		t.Fatalf("expected timeout %v, got %v", cfg.Lookup.Timeout, svc.Timeout())
	}

	health := &healthAPIService{resolver: resolver}
	if err := health.Ready(context.Background()); err != nil {
		t.Fatalf("expected ready with a nameserver, got %v", err)
	}
	if err := (&healthAPIService{}).Ready(context.Background()); err == nil {
		t.Fatal("expected not ready without a resolver")
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(buf.String(), "webcheck version "+Version) {
		t.Fatalf("unexpected version output %q", buf.String())
	}
}

func TestScanTarget(t *testing.T) {
	tests := map[string]string{
		"example.com":              "https://example.com",
		"example.com:8443/login":   "https://example.com:8443/login",
		"http://example.com":       "http://example.com",
		"https://example.com/path": "https://example.com/path",
		"":                         "",
	}
	for in, want := range tests {
		if got := scanTarget(in); got != want {
			t.Errorf("scanTarget(%q) = %q, want %q", in, got, want)
		}
	}
}
