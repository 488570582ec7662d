// Package probe fetches the page under scan and performs raw TLS handshakes.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/khanhnv2901/webcheck/internal/lookup"
	"github.com/khanhnv2901/webcheck/internal/shared/constants"
)

// UserAgent identifies webcheck to scanned sites.
const UserAgent = "webcheck/1.0 (+passive security scan)"

const (
	defaultDialTimeout      = 5 * time.Second
	defaultTLSTimeout       = 10 * time.Second
	defaultHeaderTimeout    = 10 * time.Second
	defaultIdleConnTimeout  = 90 * time.Second
	defaultMaxIdleConns     = 50
	defaultMaxRedirects     = 5
	defaultRequestTimeoutIn = 15 * time.Second
)

// Config tunes the transport used for page fetches.
// A zero-value Config results in default settings.
type Config struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	MaxRedirects   int
	MaxBodyBytes   int64
}

// Page is the single response captured for analysis.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	TLS        *tls.ConnectionState
	Response   *http.Response // Body already consumed
}

// Fetcher performs one GET per call. It never retries.
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
}

// NewFetcher builds a Fetcher with its own pooled transport.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeoutIn
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = constants.MaxProbeBodyBytes
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		// The scan reports certificate problems itself, so an invalid chain
		// must not prevent reading headers.
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- certificate validity is graded separately by /api/tls.
		TLSHandshakeTimeout:   defaultTLSTimeout,
		ResponseHeaderTimeout: defaultHeaderTimeout,
		IdleConnTimeout:       defaultIdleConnTimeout,
		MaxIdleConns:          defaultMaxIdleConns,
		ForceAttemptHTTP2:     true,
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{client: client, maxBodyBytes: cfg.MaxBodyBytes}
}

// Client exposes the underlying HTTP client for other lookups that should
// share the connection pool.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch GETs target and returns headers, status, TLS state and a bounded body.
func (f *Fetcher) Fetch(ctx context.Context, target *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, lookup.Classify(err, "fetch "+target.Host)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, lookup.Classify(err, "read "+target.Host)
	}

	return &Page{
		URL:        target.String(),
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		TLS:        resp.TLS,
		Response:   resp,
	}, nil
}

// Handshaker performs a bare TLS handshake so that protocol and certificate
// can be graded independently of any HTTP behaviour.
type Handshaker struct {
	Timeout time.Duration
	// Dial overrides the network dialer; tests point it at a local listener.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Handshake connects to host:port, completes a TLS handshake with SNI set to
// host, and returns the negotiated connection state.
func (h *Handshaker) Handshake(ctx context.Context, host, port string) (*tls.ConnectionState, error) {
	if port == "" {
		port = "443"
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultTLSTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := h.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: defaultDialTimeout}).DialContext
	}
	raw, err := dial(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, lookup.Classify(err, "dial "+host)
	}
	defer raw.Close()

	conn := tls.Client(raw, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true, // #nosec G402 -- the handshake is inspected, not trusted.
		MinVersion:         tls.VersionTLS10,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, lookup.Classify(err, "tls handshake "+host)
	}
	state := conn.ConnectionState()
	return &state, nil
}
