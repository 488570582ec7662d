package cmd

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webcheck/internal/lookup/netinfo"
	"github.com/khanhnv2901/webcheck/internal/metrics"
	"github.com/khanhnv2901/webcheck/internal/scan"
)

// newScanService wires the scan service from the runtime config.
func newScanService(cfg LookupConfig, log *zap.Logger, m *metrics.Metrics) (*scan.Service, *netinfo.Resolver) {
	resolver := netinfo.New(cfg.Nameservers, 0)
	svc := scan.New(scan.Options{
		Resolver:      resolver,
		FirewallURL:   cfg.FirewallURL,
		CrtshBaseURL:  cfg.CrtshBaseURL,
		WhoisServer:   cfg.WhoisServer,
		LookupTimeout: cfg.Timeout,
		Metrics:       m,
		Logger:        log,
	})
	return svc, resolver
}

// healthAPIService backs /api/health and /api/ready.
type healthAPIService struct {
	resolver interface{ Servers() []string }
}

func (s *healthAPIService) Check(ctx context.Context) error {
	return nil
}

// Ready fails until at least one DNS server is available to the scanner.
func (s *healthAPIService) Ready(ctx context.Context) error {
	if s.resolver == nil || len(s.resolver.Servers()) == 0 {
		return errors.New("no DNS servers configured")
	}
	return nil
}
