package scan

import (
	"encoding/json"

	"github.com/khanhnv2901/webcheck/internal/checker"
	"github.com/khanhnv2901/webcheck/internal/lookup/whois"
)

// FirewallReport answers /api/scan. When an upstream firewall service
// produced the report, Raw holds its JSON and is emitted unchanged.
type FirewallReport struct {
	URL      string          `json:"url"`
	HasWAF   bool            `json:"hasWaf"`
	WAF      string          `json:"waf"`
	Evidence []string        `json:"evidence"`
	Source   string          `json:"-"`
	Raw      json.RawMessage `json:"-"`
}

// MarshalJSON passes upstream answers through verbatim.
func (r FirewallReport) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain FirewallReport
	return json.Marshal(plain(r))
}

// DomainsReport answers /api/domains.
type DomainsReport struct {
	Domain  string   `json:"domain"`
	Count   int      `json:"count"`
	Domains []string `json:"domains"`
}

// TLSReport answers /api/tls.
type TLSReport struct {
	URL            string                   `json:"url"`
	Host           string                   `json:"host"`
	Analyzer       string                   `json:"analyzer"`
	Grade          int                      `json:"grade"`
	LetterGrade    string                   `json:"lettergrade"`
	Version        string                   `json:"version"`
	CipherSuite    string                   `json:"cipher_suite"`
	ForwardSecrecy bool                     `json:"forward_secrecy"`
	Certificate    *checker.CertificateInfo `json:"certificate"`
	Issues         []checker.TLSIssue       `json:"issues"`
}

// ServerInfo answers /api/server-info.
type ServerInfo struct {
	URL        string   `json:"url"`
	Hostname   string   `json:"hostname"`
	IP         string   `json:"ip"`
	IPs        []string `json:"ips"`
	CNAME      []string `json:"cname"`
	ReverseDNS []string `json:"reverse_dns"`
	ASN        string   `json:"asn"`
	ASName     string   `json:"as_name"`
	BGPPrefix  string   `json:"bgp_prefix"`
	Country    string   `json:"country"`
	Registry   string   `json:"registry"`
	Provider   string   `json:"provider"`
	Server     string   `json:"server"`
	PoweredBy  string   `json:"powered_by"`
	Title      string   `json:"title"`
	Generator  string   `json:"generator"`
}

// SecurityReport answers /api/security. Client covers the page itself and
// does not affect the header score.
type SecurityReport struct {
	URL        string                          `json:"url"`
	StatusCode int                             `json:"status_code"`
	Score      int                             `json:"score"`
	MaxScore   int                             `json:"max_score"`
	Grade      string                          `json:"grade"`
	Headers    map[string]checker.HeaderStatus `json:"headers"`
	Missing    []string                        `json:"missing"`
	Warnings   []string                        `json:"warnings"`
	Cookies    []checker.CookieFinding         `json:"cookies"`
	CORS       *checker.CORSReport             `json:"cors"`
	Client     *checker.ClientReport           `json:"client"`
}

// WhoisReport answers /api/whois.
type WhoisReport = whois.Record

// BundleResult collects every lookup of one scan. A lookup that failed has a
// nil report and an entry in Errors keyed by its name.
type BundleResult struct {
	URL        string            `json:"url"`
	Firewall   *FirewallReport   `json:"scan,omitempty"`
	Domains    *DomainsReport    `json:"domains,omitempty"`
	TLS        *TLSReport        `json:"tls,omitempty"`
	ServerInfo *ServerInfo       `json:"server_info,omitempty"`
	Security   *SecurityReport   `json:"security,omitempty"`
	Whois      *WhoisReport      `json:"whois,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}
