// Package whois queries port-43 WHOIS servers and extracts registration data.
package whois

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/khanhnv2901/webcheck/internal/checker"
	"github.com/khanhnv2901/webcheck/internal/lookup"
	"github.com/khanhnv2901/webcheck/internal/shared/constants"
	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

const (
	defaultPort    = "43"
	defaultTimeout = 12 * time.Second
	// maxReferrals covers root -> registry -> registrar.
	maxReferrals = 2
)

// Record is the parsed registration data for one domain.
type Record struct {
	Domain            string   `json:"domain"`
	Server            string   `json:"server"`
	Registrar         string   `json:"registrar"`
	RegistrarURL      string   `json:"registrar_url"`
	Created           string   `json:"created"`
	Updated           string   `json:"updated"`
	Expires           string   `json:"expires"`
	NameServers       []string `json:"name_servers"`
	Status            []string `json:"status"`
	DNSSEC            string   `json:"dnssec"`
	RegistrantOrg     string   `json:"registrant_org"`
	RegistrantCountry string   `json:"registrant_country"`
	Raw               string   `json:"raw"`
}

// DialFunc opens a TCP connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client performs WHOIS lookups starting at a root server.
type Client struct {
	Server  string
	Port    string
	Timeout time.Duration
	Dial    DialFunc
}

// New returns a Client rooted at server (whois.iana.org when empty).
func New(server string) *Client {
	if server == "" {
		server = constants.DefaultWhoisServer
	}
	return &Client{Server: server}
}

// Lookup resolves the registrable domain of name and returns its record.
// Referrals are followed at most maxReferrals times. When a referred server
// fails or answers without a record, the last answer holding one is kept.
func (c *Client) Lookup(ctx context.Context, name string) (*Record, error) {
	domain, err := RegistrableDomain(name)
	if err != nil {
		return nil, err
	}

	server := c.Server
	if server == "" {
		server = constants.DefaultWhoisServer
	}

	raw, err := c.query(ctx, server, domain)
	if err != nil {
		return nil, err
	}
	answeredBy := server
	// The root answer describes the TLD, so it never counts as a record.
	haveRecord := false

	visited := map[string]bool{strings.ToLower(server): true}
	for i := 0; i < maxReferrals; i++ {
		next := parseReferral(raw)
		if next == "" || visited[next] {
			break
		}
		visited[next] = true

		referred, err := c.query(ctx, next, domain)
		if err != nil || strings.TrimSpace(referred) == "" {
			break
		}
		// A referred server that answers without a record (rate-limit banner,
		// "not found") does not replace data we already hold.
		empty := Parse(referred).isEmpty()
		if empty && haveRecord {
			break
		}
		raw, answeredBy = referred, next
		haveRecord = !empty
	}

	record := Parse(raw)
	record.Domain = domain
	record.Server = answeredBy
	if record.isEmpty() && notFound(raw) {
		return nil, fmt.Errorf("whois %s: %w", domain, apperrors.ErrNotFound)
	}
	return record, nil
}

// RegistrableDomain reduces a host to its eTLD+1 ("www.example.co.uk" -> "example.co.uk").
func RegistrableDomain(name string) (string, error) {
	domain, err := checker.ValidateDomain(name)
	if err != nil {
		return "", err
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return "", fmt.Errorf("%w: %w: %v", apperrors.ErrInvalidInput, apperrors.ErrInvalidDomain, err)
	}
	return registrable, nil
}

func (c *Client) query(ctx context.Context, server, domain string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	port := c.Port
	if port == "" {
		port = defaultPort
	}
	dial := c.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}

	conn, err := dial(ctx, "tcp", net.JoinHostPort(server, port))
	if err != nil {
		return "", lookup.Classify(err, "whois "+server)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := io.WriteString(conn, domain+"\r\n"); err != nil {
		return "", lookup.Classify(err, "whois "+server)
	}

	body, err := io.ReadAll(io.LimitReader(conn, constants.MaxWhoisResponseBytes))
	if err != nil && len(body) == 0 {
		return "", lookup.Classify(err, "whois "+server)
	}
	return string(body), nil
}

// parseReferral returns the next server named by a response, lower-cased
// and stripped of any scheme or port.
func parseReferral(raw string) string {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxWhoisResponseBytes)
	for scanner.Scan() {
		key, value, ok := splitField(scanner.Text())
		if !ok || value == "" {
			continue
		}
		switch key {
		case "refer", "whois", "whois server", "registrar whois server", "referralserver":
			return cleanServer(value)
		}
	}
	return ""
}

func cleanServer(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, prefix := range []string{"whois://", "rwhois://", "http://", "https://"} {
		value = strings.TrimPrefix(value, prefix)
	}
	value = strings.TrimSuffix(value, "/")
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	return value
}

// splitField splits "Key: value" lines; comment lines and lines without a
// colon are rejected. Keys are lower-cased.
func splitField(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
		return "", "", false
	}
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value), true
}

var notFoundMarkers = []string{
	"no match for",
	"not found",
	"no data found",
	"no entries found",
	"status: free",
	"domain not found",
}

func notFound(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
