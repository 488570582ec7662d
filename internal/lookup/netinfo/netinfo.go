// Package netinfo resolves the network identity of a host: addresses, CNAME
// chain, reverse DNS and the announcing autonomous system (Team Cymru).
package netinfo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/khanhnv2901/webcheck/internal/lookup"
	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

const (
	defaultTimeout = 3 * time.Second
	resolvConfPath = "/etc/resolv.conf"
	// maxCNAMEHops guards against CNAME loops.
	maxCNAMEHops = 8

	cymruOrigin  = "origin.asn.cymru.com."
	cymruOrigin6 = "origin6.asn.cymru.com."
	cymruASN     = "asn.cymru.com."
)

var fallbackServers = []string{"1.1.1.1:53", "8.8.8.8:53"}

// HostInfo is the forward resolution of one hostname.
type HostInfo struct {
	Host   string
	CNAMEs []string
	IPv4   []string
	IPv6   []string
}

// Addresses returns IPv4 addresses first, then IPv6.
func (h *HostInfo) Addresses() []string {
	out := make([]string, 0, len(h.IPv4)+len(h.IPv6))
	out = append(out, h.IPv4...)
	return append(out, h.IPv6...)
}

// ASNInfo is the Team Cymru view of an address.
type ASNInfo struct {
	IP        string
	ASN       string
	Prefix    string
	Country   string
	Registry  string
	Allocated string
	Name      string
}

// Resolver queries DNS directly so CNAME chains and TXT answers are visible.
type Resolver struct {
	client  *dns.Client
	servers []string
}

// New builds a Resolver. With no servers it uses resolv.conf and then public
// fallbacks.
func New(servers []string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if len(servers) == 0 {
		servers = systemServers()
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}
	if len(normalized) == 0 {
		normalized = fallbackServers
	}
	return &Resolver{
		client:  &dns.Client{Timeout: timeout},
		servers: normalized,
	}
}

// Servers reports the nameservers in query order.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(cfg.Servers) == 0 {
		return fallbackServers
	}
	servers := make([]string, 0, len(cfg.Servers)+len(fallbackServers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return append(servers, fallbackServers...)
}

// exchange asks each server in turn and returns the first usable answer.
// NXDOMAIN counts as an answer.
func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, lookup.Classify(err, "dns "+name)
		}
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err == nil && resp != nil && resp.Truncated {
			tcp := &dns.Client{Net: "tcp", Timeout: r.client.Timeout}
			resp, _, err = tcp.ExchangeContext(ctx, msg, server)
		}
		if err != nil {
			lastErr = err
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess, dns.RcodeNameError:
			return resp, nil
		default:
			lastErr = fmt.Errorf("%s from %s", dns.RcodeToString[resp.Rcode], server)
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no nameservers configured")
	}
	return nil, lookup.Classify(lastErr, "dns "+name)
}

// LookupHost resolves A and AAAA records and records the CNAME chain
// followed on the way.
func (r *Resolver) LookupHost(ctx context.Context, host string) (*HostInfo, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	info := &HostInfo{Host: host, CNAMEs: []string{}, IPv4: []string{}, IPv6: []string{}}

	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			info.IPv4 = append(info.IPv4, ip.String())
		} else {
			info.IPv6 = append(info.IPv6, ip.String())
		}
		return info, nil
	}

	respA, err := r.exchange(ctx, host, dns.TypeA)
	if err != nil {
		return nil, err
	}
	info.CNAMEs = cnameChain(respA, host)
	for _, rr := range respA.Answer {
		if a, ok := rr.(*dns.A); ok {
			info.IPv4 = appendUnique(info.IPv4, a.A.String())
		}
	}

	respAAAA, err := r.exchange(ctx, host, dns.TypeAAAA)
	if err == nil {
		for _, rr := range respAAAA.Answer {
			if aaaa, ok := rr.(*dns.AAAA); ok {
				info.IPv6 = appendUnique(info.IPv6, aaaa.AAAA.String())
			}
		}
	}

	if len(info.IPv4) == 0 && len(info.IPv6) == 0 {
		return nil, fmt.Errorf("dns %s: %w", host, apperrors.ErrNotFound)
	}
	return info, nil
}

// cnameChain walks CNAME records in answer order starting at host.
func cnameChain(resp *dns.Msg, host string) []string {
	targets := make(map[string]string)
	for _, rr := range resp.Answer {
		if c, ok := rr.(*dns.CNAME); ok {
			targets[strings.ToLower(c.Hdr.Name)] = strings.ToLower(c.Target)
		}
	}

	chain := []string{}
	current := dns.Fqdn(host)
	for i := 0; i < maxCNAMEHops; i++ {
		next, ok := targets[current]
		if !ok {
			break
		}
		chain = append(chain, strings.TrimSuffix(next, "."))
		current = next
	}
	return chain
}

// ReverseDNS returns the PTR names for ip. An address without PTR records
// yields an empty slice, not an error.
func (r *Resolver) ReverseDNS(ctx context.Context, ip string) ([]string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	resp, err := r.exchange(ctx, arpa, dns.TypePTR)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = appendUnique(names, strings.TrimSuffix(ptr.Ptr, "."))
		}
	}
	return names, nil
}

// ASN looks up the origin AS of ip and then its registered name.
func (r *Resolver) ASN(ctx context.Context, ip string) (*ASNInfo, error) {
	query, err := cymruOriginName(ip)
	if err != nil {
		return nil, err
	}

	records, err := r.txt(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("asn %s: %w", ip, apperrors.ErrNotFound)
	}
	info := parseOrigin(ip, records[0])
	if info == nil {
		return nil, fmt.Errorf("asn %s: %w: malformed origin record %q", ip, apperrors.ErrUpstream, records[0])
	}

	// Name lookup failures leave Name empty.
	if names, err := r.txt(ctx, "AS"+info.ASN+"."+cymruASN); err == nil && len(names) > 0 {
		info.Name = parseASName(names[0])
	}
	return info, nil
}

func (r *Resolver) txt(ctx context.Context, name string) ([]string, error) {
	resp, err := r.exchange(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	return out, nil
}

// cymruOriginName maps 192.0.2.1 to 1.2.0.192.origin.asn.cymru.com. and IPv6
// addresses to their nibble form under origin6.
func cymruOriginName(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("%w: not an IP address: %q", apperrors.ErrInvalidInput, ip)
	}
	arpa, err := dns.ReverseAddr(parsed.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if parsed.To4() != nil {
		return strings.TrimSuffix(arpa, "in-addr.arpa.") + cymruOrigin, nil
	}
	return strings.TrimSuffix(arpa, "ip6.arpa.") + cymruOrigin6, nil
}

// parseOrigin reads "ASN | prefix | CC | registry | allocated". Multi-origin
// prefixes list several ASNs; the first is kept.
func parseOrigin(ip, record string) *ASNInfo {
	parts := strings.Split(record, "|")
	if len(parts) < 4 {
		return nil
	}
	asns := strings.Fields(parts[0])
	if len(asns) == 0 {
		return nil
	}
	info := &ASNInfo{
		IP:       ip,
		ASN:      asns[0],
		Prefix:   strings.TrimSpace(parts[1]),
		Country:  strings.TrimSpace(parts[2]),
		Registry: strings.TrimSpace(parts[3]),
	}
	if len(parts) > 4 {
		info.Allocated = strings.TrimSpace(parts[4])
	}
	return info
}

// parseASName reads "ASN | CC | registry | allocated | name".
func parseASName(record string) string {
	parts := strings.Split(record, "|")
	if len(parts) < 5 {
		return ""
	}
	return strings.TrimSpace(parts[4])
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
