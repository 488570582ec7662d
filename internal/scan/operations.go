package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/khanhnv2901/webcheck/internal/checker"
	"github.com/khanhnv2901/webcheck/internal/lookup"
	"github.com/khanhnv2901/webcheck/internal/shared/constants"
	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

// Firewall reports whether a WAF fronts rawURL. With an upstream configured
// the upstream answer is returned unchanged.
func (s *Service) Firewall(ctx context.Context, rawURL string) (*FirewallReport, error) {
	target, err := checker.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	return observe(ctx, s, LookupFirewall, target.String(), func(ctx context.Context) (*FirewallReport, error) {
		if s.firewallURL != "" {
			return s.upstreamFirewall(ctx, target)
		}
		return s.detectFirewall(ctx, target)
	})
}

func (s *Service) detectFirewall(ctx context.Context, target *url.URL) (*FirewallReport, error) {
	page, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	var cnames []string
	if info, err := s.resolver.LookupHost(ctx, target.Hostname()); err == nil {
		cnames = info.CNAMEs
	} else {
		s.logger.Debug("cname lookup failed", zap.String("host", target.Hostname()), zap.Error(err))
	}

	detection := checker.DetectWAF(page.Header, string(page.Body), cnames)
	report := &FirewallReport{
		URL:      target.String(),
		HasWAF:   detection.Detected,
		WAF:      detection.Name,
		Evidence: detection.Evidence,
		Source:   "native",
	}
	if report.Evidence == nil {
		report.Evidence = []string{}
	}
	return report, nil
}

func (s *Service) upstreamFirewall(ctx context.Context, target *url.URL) (*FirewallReport, error) {
	endpoint := strings.TrimRight(s.firewallURL, "/") + "/api/firewall?url=" + url.QueryEscape(target.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.upstream.Do(req)
	if err != nil {
		return nil, lookup.Classify(err, "firewall upstream")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxUpstreamBodyBytes+1))
	if err != nil {
		return nil, lookup.Classify(err, "firewall upstream")
	}
	if len(body) > constants.MaxUpstreamBodyBytes {
		return nil, fmt.Errorf("firewall upstream: %w: %w", apperrors.ErrUpstream, apperrors.ErrResponseTooLong)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("firewall upstream: %w: status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	var decoded struct {
		HasWAF bool   `json:"hasWaf"`
		WAF    string `json:"waf"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("firewall upstream: %w: decode: %v", apperrors.ErrUpstream, err)
	}

	return &FirewallReport{
		URL:      target.String(),
		HasWAF:   decoded.HasWAF,
		WAF:      decoded.WAF,
		Evidence: []string{},
		Source:   "upstream",
		Raw:      json.RawMessage(bytes.TrimSpace(body)),
	}, nil
}

// Domains lists names under domain seen in Certificate Transparency logs.
func (s *Service) Domains(ctx context.Context, domain string) (*DomainsReport, error) {
	normalized, err := checker.ValidateDomain(domain)
	if err != nil {
		return nil, err
	}
	return observe(ctx, s, LookupDomains, normalized, func(ctx context.Context) (*DomainsReport, error) {
		names, err := s.domains.Domains(ctx, normalized)
		if err != nil {
			return nil, err
		}
		if names == nil {
			names = []string{}
		}
		return &DomainsReport{Domain: normalized, Count: len(names), Domains: names}, nil
	})
}

// TLS grades the TLS endpoint of rawURL. Plain http URLs are graded on 443.
func (s *Service) TLS(ctx context.Context, rawURL string) (*TLSReport, error) {
	target, err := checker.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	host := target.Hostname()
	port := "443"
	if target.Scheme == "https" && target.Port() != "" {
		port = target.Port()
	}

	return observe(ctx, s, LookupTLS, host, func(ctx context.Context) (*TLSReport, error) {
		state, err := s.tls.Handshake(ctx, host, port)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrTLSUnavailable, err)
		}
		analysis := checker.AnalyzeTLS(state, host)
		issues := analysis.Issues
		if issues == nil {
			issues = []checker.TLSIssue{}
		}
		return &TLSReport{
			URL:            target.String(),
			Host:           host,
			Analyzer:       constants.TLSAnalyzerName,
			Grade:          analysis.Score,
			LetterGrade:    analysis.LetterGrade,
			Version:        analysis.Version,
			CipherSuite:    analysis.CipherSuite,
			ForwardSecrecy: analysis.ForwardSecrecy,
			Certificate:    analysis.Certificate,
			Issues:         issues,
		}, nil
	})
}

// ServerInfo describes where rawURL is hosted and what it runs. Only the
// address lookup is required; reverse DNS, ASN and page details are filled
// in when available.
func (s *Service) ServerInfo(ctx context.Context, rawURL string) (*ServerInfo, error) {
	target, err := checker.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	host := target.Hostname()

	return observe(ctx, s, LookupServerInfo, host, func(ctx context.Context) (*ServerInfo, error) {
		hostInfo, err := s.resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}
		ips := hostInfo.Addresses()
		if len(ips) == 0 {
			return nil, fmt.Errorf("resolve %s: %w", host, apperrors.ErrNotFound)
		}
		info := &ServerInfo{
			URL:        target.String(),
			Hostname:   host,
			IP:         ips[0],
			IPs:        ips,
			CNAME:      nonNil(hostInfo.CNAMEs),
			ReverseDNS: []string{},
			Provider:   checker.HostingProvider(hostInfo.CNAMEs),
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		wg.Add(3)
		go func() {
			defer wg.Done()
			names, err := s.resolver.ReverseDNS(ctx, info.IP)
			if err != nil {
				s.logger.Debug("reverse dns failed", zap.String("ip", info.IP), zap.Error(err))
				return
			}
			mu.Lock()
			info.ReverseDNS = names
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			asn, err := s.resolver.ASN(ctx, info.IP)
			if err != nil {
				s.logger.Debug("asn lookup failed", zap.String("ip", info.IP), zap.Error(err))
				return
			}
			mu.Lock()
			info.ASN = asn.ASN
			info.ASName = asn.Name
			info.BGPPrefix = asn.Prefix
			info.Country = asn.Country
			info.Registry = asn.Registry
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			page, err := s.fetcher.Fetch(ctx, target)
			if err != nil {
				s.logger.Debug("page fetch failed", zap.String("url", target.String()), zap.Error(err))
				return
			}
			title, generator := pageMetadata(page.Body)
			mu.Lock()
			info.Server = page.Header.Get("Server")
			info.PoweredBy = page.Header.Get("X-Powered-By")
			info.Title = title
			info.Generator = generator
			mu.Unlock()
		}()
		wg.Wait()

		return info, nil
	})
}

// pageMetadata extracts <title> and <meta name="generator"> from HTML.
func pageMetadata(body []byte) (title, generator string) {
	if len(body) == 0 {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.EqualFold(sel.AttrOr("name", ""), "generator") {
			generator = strings.TrimSpace(sel.AttrOr("content", ""))
			return false
		}
		return true
	})
	return title, generator
}

// Security scores the response headers, cookies and CORS policy of rawURL
// and inspects the page for client-side weaknesses.
func (s *Service) Security(ctx context.Context, rawURL string) (*SecurityReport, error) {
	target, err := checker.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	return observe(ctx, s, LookupSecurity, target.String(), func(ctx context.Context) (*SecurityReport, error) {
		page, err := s.fetcher.Fetch(ctx, target)
		if err != nil {
			return nil, err
		}
		headers := checker.AnalyzeSecurityHeaders(page.Header)

		var cookies []checker.CookieFinding
		var jar []*http.Cookie
		if page.Response != nil {
			cookies = checker.AnalyzeCookies(page.Response)
			jar = page.Response.Cookies()
		}
		if cookies == nil {
			cookies = []checker.CookieFinding{}
		}

		return &SecurityReport{
			URL:        target.String(),
			StatusCode: page.StatusCode,
			Score:      headers.Score,
			MaxScore:   headers.MaxScore,
			Grade:      headers.Grade,
			Headers:    headers.Headers,
			Missing:    nonNil(headers.Missing),
			Warnings:   nonNil(headers.Warnings),
			Cookies:    cookies,
			CORS:       checker.AnalyzeCORS(page.Header),
			Client:     checker.AnalyzeClient(page.Body, page.Header, jar),
		}, nil
	})
}

// Whois returns registration data for the registrable part of domain.
func (s *Service) Whois(ctx context.Context, domain string) (*WhoisReport, error) {
	normalized, err := checker.ValidateDomain(domain)
	if err != nil {
		return nil, err
	}
	return observe(ctx, s, LookupWhois, normalized, func(ctx context.Context) (*WhoisReport, error) {
		return s.whois.Lookup(ctx, normalized)
	})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
