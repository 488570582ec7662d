// Package scan binds the analyzers in checker to the network lookups and
// exposes one operation per scan endpoint.
package scan

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webcheck/internal/lookup/crtsh"
	"github.com/khanhnv2901/webcheck/internal/lookup/netinfo"
	"github.com/khanhnv2901/webcheck/internal/lookup/probe"
	"github.com/khanhnv2901/webcheck/internal/lookup/whois"
	"github.com/khanhnv2901/webcheck/internal/metrics"
	"github.com/khanhnv2901/webcheck/internal/shared/constants"
	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

// Lookup names used in logs, metrics and bundle errors.
const (
	LookupFirewall   = "scan"
	LookupDomains    = "domains"
	LookupTLS        = "tls"
	LookupServerInfo = "server_info"
	LookupSecurity   = "security"
	LookupWhois      = "whois"
)

// PageFetcher retrieves the page under scan.
type PageFetcher interface {
	Fetch(ctx context.Context, target *url.URL) (*probe.Page, error)
}

// TLSProber completes a TLS handshake with a host.
type TLSProber interface {
	Handshake(ctx context.Context, host, port string) (*tls.ConnectionState, error)
}

// DomainSource enumerates names related to a domain.
type DomainSource interface {
	Domains(ctx context.Context, domain string) ([]string, error)
}

// WhoisSource returns registration data for a domain.
type WhoisSource interface {
	Lookup(ctx context.Context, domain string) (*whois.Record, error)
}

// NetResolver answers the DNS questions asked by a scan.
type NetResolver interface {
	LookupHost(ctx context.Context, host string) (*netinfo.HostInfo, error)
	ReverseDNS(ctx context.Context, ip string) ([]string, error)
	ASN(ctx context.Context, ip string) (*netinfo.ASNInfo, error)
}

// Options wires a Service. Nil collaborators are replaced by the real
// network implementations.
type Options struct {
	Fetcher  PageFetcher
	TLS      TLSProber
	Domains  DomainSource
	Whois    WhoisSource
	Resolver NetResolver

	// FirewallURL, when set, is the base URL of an external web-check
	// instance whose /api/firewall answers /api/scan.
	FirewallURL string
	Upstream    *http.Client

	CrtshBaseURL string
	WhoisServer  string
	Nameservers  []string

	LookupTimeout time.Duration
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// Service runs scan lookups. It is safe for concurrent use.
type Service struct {
	fetcher  PageFetcher
	tls      TLSProber
	domains  DomainSource
	whois    WhoisSource
	resolver NetResolver

	firewallURL string
	upstream    *http.Client

	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New builds a Service from opts.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = constants.DefaultLookupTimeout
	}

	fetcher := opts.Fetcher
	var shared *http.Client
	if fetcher == nil {
		f := probe.NewFetcher(probe.Config{RequestTimeout: timeout})
		fetcher = f
		shared = f.Client()
	}
	if shared == nil {
		shared = &http.Client{Timeout: timeout}
	}

	s := &Service{
		fetcher:     fetcher,
		tls:         opts.TLS,
		domains:     opts.Domains,
		whois:       opts.Whois,
		resolver:    opts.Resolver,
		firewallURL: opts.FirewallURL,
		upstream:    opts.Upstream,
		timeout:     timeout,
		metrics:     opts.Metrics,
		logger:      logger,
	}
	if s.tls == nil {
		s.tls = &probe.Handshaker{}
	}
	if s.domains == nil {
		s.domains = crtsh.New(opts.CrtshBaseURL, shared)
	}
	if s.whois == nil {
		s.whois = whois.New(opts.WhoisServer)
	}
	if s.resolver == nil {
		s.resolver = netinfo.New(opts.Nameservers, 0)
	}
	if s.upstream == nil {
		s.upstream = &http.Client{Timeout: timeout}
	}
	return s
}

// Timeout is the per-lookup deadline.
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// observe runs fn under the lookup timeout and records its outcome.
func observe[T any](ctx context.Context, s *Service, lookupName, target string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	outcome := outcomeFor(err)
	s.metrics.ObserveLookup(lookupName, outcome, elapsed)

	if err != nil && !errors.Is(err, apperrors.ErrInvalidInput) {
		s.logger.Warn("lookup failed",
			zap.String("lookup", lookupName),
			zap.String("target", target),
			zap.String("outcome", outcome),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	} else if err == nil {
		s.logger.Debug("lookup completed",
			zap.String("lookup", lookupName),
			zap.String("target", target),
			zap.Duration("duration", elapsed))
	}
	return result, err
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case errors.Is(err, apperrors.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, apperrors.ErrInvalidInput):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
