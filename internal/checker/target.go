package checker

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // http or https
	Host     string // Hostname (without protocol, path, port)
	Port     string // Port if specified
	Path     string // Path if specified
	FullURL  string // Full normalized URL (for HTTP requests)
}

// ParseTarget parses a loosely written target into structured components.
// Accepted forms:
//   - example.com
//   - http://example.com
//   - https://example.com:443/path
//   - example.com:8080
//
// A missing scheme defaults to https. FullURL is empty when no host can be
// found. The CLI runs arguments through here; the HTTP API only accepts what
// ValidateURL accepts.
func ParseTarget(target string) *TargetInfo {
	target = strings.TrimSpace(target)
	info := &TargetInfo{Original: target}

	parsed, err := url.Parse(target)
	// "example.com:8080" parses with scheme "example.com", so a dotted scheme
	// means the scheme was really omitted.
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" {
		parsed, err = url.Parse("https://" + target)
	}
	if err != nil || parsed == nil || parsed.Hostname() == "" {
		return info
	}

	info.Scheme = strings.ToLower(parsed.Scheme)
	info.Host = strings.ToLower(parsed.Hostname())
	info.Port = parsed.Port()
	info.Path = parsed.Path
	info.FullURL = parsed.String()
	return info
}

// ValidateURL accepts only absolute http/https URLs that name a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, apperrors.ErrMissingURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, apperrors.ErrInvalidURL)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, apperrors.ErrInvalidURL)
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	return u, nil
}

// ValidateDomain normalises a hostname and rejects anything that is not a
// plausible DNS name. A full URL is reduced to its host so that callers can
// pass the form value through unchanged.
func ValidateDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, apperrors.ErrMissingDomain)
	}
	if strings.Contains(raw, "://") {
		u, err := ValidateURL(raw)
		if err != nil {
			return "", err
		}
		raw = u.Hostname()
	}

	domain := NormalizeDomain(raw)
	if !isDomainName(domain) {
		return "", fmt.Errorf("%w: %w: %q", apperrors.ErrInvalidInput, apperrors.ErrInvalidDomain, raw)
	}
	return domain, nil
}

// NormalizeDomain lower-cases a name and strips surrounding whitespace and dots.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.Trim(domain, ".")
	return strings.ToLower(domain)
}

func isDomainName(name string) bool {
	if name == "" || len(name) > 253 || !strings.Contains(name, ".") {
		return false
	}
	if net.ParseIP(name) != nil {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			default:
				return false
			}
		}
	}
	return true
}
