package checker

import (
	"errors"
	"testing"

	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		scheme string
		host   string
		port   string
		full   string
	}{
		{"bare host", "example.com", "https", "example.com", "", "https://example.com"},
		{"http url", "http://example.com", "http", "example.com", "", "http://example.com"},
		{"url with port and path", "https://Example.com:8443/login", "https", "example.com", "8443", "https://Example.com:8443/login"},
		{"host with port", "example.com:8080", "https", "example.com", "8080", "https://example.com:8080"},
		{"surrounding spaces", "  example.com/a  ", "https", "example.com", "", "https://example.com/a"},
		{"empty", "", "", "", "", ""},
		{"other scheme kept", "ftp://example.com", "ftp", "example.com", "", "ftp://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseTarget(tt.input)
			if info.Scheme != tt.scheme {
				t.Errorf("scheme = %q, want %q", info.Scheme, tt.scheme)
			}
			if info.Host != tt.host {
				t.Errorf("host = %q, want %q", info.Host, tt.host)
			}
			if info.Port != tt.port {
				t.Errorf("port = %q, want %q", info.Port, tt.port)
			}
			if info.FullURL != tt.full {
				t.Errorf("full url = %q, want %q", info.FullURL, tt.full)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{"https://example.com", "http://example.com/path?q=1", "HTTPS://EXAMPLE.COM"}
	for _, raw := range valid {
		u, err := ValidateURL(raw)
		if err != nil {
			t.Errorf("ValidateURL(%q) unexpected error: %v", raw, err)
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			t.Errorf("ValidateURL(%q) scheme = %q", raw, u.Scheme)
		}
	}

	invalid := []string{"", "   ", "example.com", "ftp://example.com", "https://", "javascript:alert(1)"}
	for _, raw := range invalid {
		if _, err := ValidateURL(raw); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("ValidateURL(%q) error = %v, want ErrInvalidInput", raw, err)
		}
	}
}

func TestValidateURL_MissingIsDistinct(t *testing.T) {
	_, err := ValidateURL("")
	if !errors.Is(err, apperrors.ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"example.com", "example.com", true},
		{"WWW.Example.COM.", "www.example.com", true},
		{"https://sub.example.org/path", "sub.example.org", true},
		{"", "", false},
		{"localhost", "", false},
		{"192.168.1.1", "", false},
		{"-bad.example.com", "", false},
		{"bad-.example.com", "", false},
		{"exa mple.com", "", false},
		{"a..b.com", "", false},
		{"foo_bar.example.com", "", false},
		{"_dmarc.example.com", "", false},
	}

	for _, tt := range tests {
		got, err := ValidateDomain(tt.input)
		if tt.ok {
			if err != nil {
				t.Errorf("ValidateDomain(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
			continue
		}
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("ValidateDomain(%q) error = %v, want ErrInvalidInput", tt.input, err)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"Example.COM":    "example.com",
		" example.com. ": "example.com",
		".example.com":   "example.com",
		"*.Example.com":  "*.example.com",
		"...":            "",
		"":               "",
	}
	for in, want := range cases {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
