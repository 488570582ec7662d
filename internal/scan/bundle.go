package scan

import (
	"context"
	"sync"

	"github.com/khanhnv2901/webcheck/internal/checker"
)

// BundleOptions tunes Bundle.
type BundleOptions struct {
	// IncludeWhois adds the WHOIS lookup, which the page only runs on demand.
	IncludeWhois bool
	// OnDone is called once per lookup as it finishes, from the lookup's goroutine.
	OnDone func(lookup string, err error)
}

// Steps reports how many lookups Bundle will run for opts.
func (o BundleOptions) Steps() int {
	if o.IncludeWhois {
		return 6
	}
	return 5
}

// Bundle runs the lookups of one scan concurrently and waits for all of them.
// Each lookup succeeds or fails on its own; a failure never cancels the others.
func (s *Service) Bundle(ctx context.Context, rawURL string, opts BundleOptions) (*BundleResult, error) {
	target, err := checker.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	done := s.metrics.TrackScan()
	defer done()

	result := &BundleResult{URL: target.String(), Errors: map[string]string{}}
	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn()
			if err != nil {
				mu.Lock()
				result.Errors[name] = err.Error()
				mu.Unlock()
			}
			if opts.OnDone != nil {
				opts.OnDone(name, err)
			}
		}()
	}

	urlString := target.String()
	host := target.Hostname()

	run(LookupFirewall, func() error {
		r, err := s.Firewall(ctx, urlString)
		mu.Lock()
		result.Firewall = r
		mu.Unlock()
		return err
	})
	run(LookupDomains, func() error {
		r, err := s.Domains(ctx, host)
		mu.Lock()
		result.Domains = r
		mu.Unlock()
		return err
	})
	run(LookupTLS, func() error {
		r, err := s.TLS(ctx, urlString)
		mu.Lock()
		result.TLS = r
		mu.Unlock()
		return err
	})
	run(LookupServerInfo, func() error {
		r, err := s.ServerInfo(ctx, urlString)
		mu.Lock()
		result.ServerInfo = r
		mu.Unlock()
		return err
	})
	run(LookupSecurity, func() error {
		r, err := s.Security(ctx, urlString)
		mu.Lock()
		result.Security = r
		mu.Unlock()
		return err
	})
	if opts.IncludeWhois {
		run(LookupWhois, func() error {
			r, err := s.Whois(ctx, host)
			mu.Lock()
			result.Whois = r
			mu.Unlock()
			return err
		})
	}

	wg.Wait()
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}
