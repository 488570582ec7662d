package checker

import (
	"net/http"
	"strings"
	"testing"
)

func TestAnalyzeClient_VulnerableLibraries(t *testing.T) {
	body := []byte(`<html><head>
		<script src="https://code.jquery.com/jquery-3.4.1.min.js"></script>
		<script src="https://ajax.googleapis.com/ajax/libs/angularjs/1.7.8/angular.min.js"></script>
		<script src="https://cdn.jsdelivr.net/npm/lodash@4.17.11/lodash.min.js"></script>
		<script src="https://cdnjs.cloudflare.com/ajax/libs/moment.js/2.29.1/moment.min.js"></script>
		<script src="https://stackpath.bootstrapcdn.com/bootstrap/3.3.7/js/bootstrap.min.js"></script>
		<script src="https://code.jquery.com/jquery-3.4.1.min.js"></script>
	</head></html>`)

	report := AnalyzeClient(body, http.Header{}, nil)

	want := map[string]string{
		"jQuery":    "high",
		"AngularJS": "critical",
		"Lodash":    "critical",
		"Moment.js": "high",
		"Bootstrap": "medium",
	}
	if len(report.Libraries) != len(want) {
		t.Fatalf("expected %d libraries, got %+v", len(want), report.Libraries)
	}
	for _, lib := range report.Libraries {
		if want[lib.Name] != lib.Severity {
			t.Errorf("%s: expected severity %q, got %q", lib.Name, want[lib.Name], lib.Severity)
		}
		if len(lib.CVEs) == 0 || lib.FixedIn == "" {
			t.Errorf("%s: expected CVEs and fixed version, got %+v", lib.Name, lib)
		}
	}
	if len(report.Issues) != len(want) {
		t.Errorf("expected one issue per library, got %v", report.Issues)
	}
}

func TestAnalyzeClient_PatchedLibrariesIgnored(t *testing.T) {
	body := []byte(`<script src="https://code.jquery.com/jquery-3.7.1.min.js"></script>
		<script src="https://cdn.jsdelivr.net/npm/bootstrap@5.3.2/dist/js/bootstrap.bundle.min.js"></script>
		<script>var inline = "jquery-1.0.0";</script>`)

	report := AnalyzeClient(body, http.Header{}, nil)
	if len(report.Libraries) != 0 {
		t.Fatalf("expected no findings, got %+v", report.Libraries)
	}
}

func TestAnalyzeClient_CSRF(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		headers   http.Header
		cookies   []*http.Cookie
		want      string
		locations []string
		issue     bool
	}{
		{
			name:  "form without protection",
			body:  `<form method="post"><input name="q"></form>`,
			want:  CSRFNone,
			issue: true,
		},
		{
			name:      "hidden token only",
			body:      `<form method="post"><input type="hidden" name="csrfmiddlewaretoken" value="x"></form>`,
			want:      CSRFModerate,
			locations: []string{"form"},
		},
		{
			name:    "samesite cookie only",
			body:    `<form method="post"></form>`,
			cookies: []*http.Cookie{{Name: "sid", SameSite: http.SameSiteLaxMode}},
			want:    CSRFModerate,
		},
		{
			name:      "meta token and strict cookie",
			body:      `<meta name="csrf-token" content="abc"><form></form>`,
			cookies:   []*http.Cookie{{Name: "XSRF-TOKEN", SameSite: http.SameSiteStrictMode}},
			want:      CSRFStrong,
			locations: []string{"meta", "cookie"},
		},
		{
			name:      "header token",
			headers:   http.Header{"X-Csrf-Token": []string{"abc"}},
			want:      CSRFModerate,
			locations: []string{"header"},
		},
		{
			name: "no forms",
			body: `<p>static page</p>`,
			want: CSRFNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := tt.headers
			if headers == nil {
				headers = http.Header{}
			}
			report := AnalyzeClient([]byte(tt.body), headers, tt.cookies)
			if report.CSRF.Protection != tt.want {
				t.Errorf("expected protection %s, got %s", tt.want, report.CSRF.Protection)
			}
			if strings.Join(report.CSRF.TokenLocations, ",") != strings.Join(tt.locations, ",") {
				t.Errorf("expected locations %v, got %v", tt.locations, report.CSRF.TokenLocations)
			}
			if got := len(report.Issues) > 0; got != tt.issue {
				t.Errorf("expected issue=%v, got %v", tt.issue, report.Issues)
			}
		})
	}
}

func TestAnalyzeClient_TrustedTypes(t *testing.T) {
	tests := []struct {
		header string
		value  string
		want   bool
	}{
		{"Content-Security-Policy", "default-src 'self'; require-trusted-types-for 'script'", true},
		{"Content-Security-Policy-Report-Only", "require-trusted-types-for 'script'; trusted-types default", true},
		{"Content-Security-Policy", "default-src 'self'; script-src 'self'", false},
		{"Content-Security-Policy", "trusted-types default", false},
	}
	for _, tt := range tests {
		headers := http.Header{}
		headers.Set(tt.header, tt.value)
		if got := AnalyzeClient(nil, headers, nil).TrustedTypes; got != tt.want {
			t.Errorf("%s %q: expected %v, got %v", tt.header, tt.value, tt.want, got)
		}
	}
}

func TestAnalyzeClient_EmptyBody(t *testing.T) {
	report := AnalyzeClient(nil, http.Header{}, nil)
	if report.Libraries == nil || report.Issues == nil || report.CSRF.TokenLocations == nil {
		t.Fatalf("expected empty slices, got %+v", report)
	}
	if report.CSRF.Protection != CSRFNone {
		t.Errorf("expected none, got %s", report.CSRF.Protection)
	}
}

func TestCompareVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"3.4.1", "3.5.0", -1},
		{"3.5", "3.5.0", 0},
		{"4.17.12", "4.17.11", 1},
		{"1.10.0", "1.9.0", 1},
	}
	for _, tt := range tests {
		if got := compareVersion(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersion(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
