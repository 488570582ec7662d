package checker

// HeaderStatus describes how a single security header was evaluated.
type HeaderStatus struct {
	Present        bool     `json:"present"`
	Value          string   `json:"value,omitempty"`
	Severity       string   `json:"severity"`
	Score          int      `json:"score"`
	MaxScore       int      `json:"max_score"`
	Issues         []string `json:"issues,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// SecurityHeadersResult is the scored outcome of AnalyzeSecurityHeaders.
type SecurityHeadersResult struct {
	Score    int                     `json:"score"`
	MaxScore int                     `json:"max_score"`
	Grade    string                  `json:"grade"`
	Headers  map[string]HeaderStatus `json:"headers"`
	Missing  []string                `json:"missing"`
	Warnings []string                `json:"warnings"`
}

// CookieFinding flags a Set-Cookie without Secure, HttpOnly or SameSite.
type CookieFinding struct {
	Name              string `json:"name"`
	MissingSecure     bool   `json:"missing_secure"`
	MissingHTTPOnly   bool   `json:"missing_http_only"`
	MissingSameSite   bool   `json:"missing_same_site"`
	OriginalSetCookie string `json:"set_cookie,omitempty"`
}

// CORSReport captures CORS response headers and the risks they carry.
type CORSReport struct {
	AllowOrigin      string   `json:"allow_origin,omitempty"`
	AllowMethods     string   `json:"allow_methods,omitempty"`
	AllowHeaders     string   `json:"allow_headers,omitempty"`
	ExposeHeaders    string   `json:"expose_headers,omitempty"`
	AllowCredentials bool     `json:"allow_credentials"`
	AllowsAnyOrigin  bool     `json:"allows_any_origin"`
	VaryOrigin       bool     `json:"vary_origin"`
	Issues           []string `json:"issues"`
}

// TLSIssue is one finding that lowered a TLS score.
type TLSIssue struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Remediation string `json:"remediation,omitempty"`
	Penalty     int    `json:"penalty"`
}

// CertificateInfo summarises the leaf certificate presented by a server.
type CertificateInfo struct {
	Subject         string   `json:"subject"`
	Issuer          string   `json:"issuer"`
	NotBefore       string   `json:"not_before"`
	NotAfter        string   `json:"not_after"`
	DNSNames        []string `json:"dns_names,omitempty"`
	SelfSigned      bool     `json:"self_signed"`
	HostnameMatch   bool     `json:"hostname_match"`
	DaysUntilExpiry int      `json:"days_until_expiry"`
	SignatureAlg    string   `json:"signature_algorithm"`
	PublicKeyAlg    string   `json:"public_key_algorithm"`
	KeySize         int      `json:"key_size,omitempty"`
}

// TLSAnalysis is the graded result of AnalyzeTLS.
type TLSAnalysis struct {
	Version        string           `json:"version"`
	CipherSuite    string           `json:"cipher_suite"`
	Protocol       string           `json:"protocol,omitempty"`
	ForwardSecrecy bool             `json:"forward_secrecy"`
	Certificate    *CertificateInfo `json:"certificate,omitempty"`
	Issues         []TLSIssue       `json:"issues"`
	Score          int              `json:"score"`
	LetterGrade    string           `json:"letter_grade"`
}

// WAFDetection reports whether a firewall or protective CDN fronts a site.
type WAFDetection struct {
	Detected bool     `json:"detected"`
	Name     string   `json:"name,omitempty"`
	Evidence []string `json:"evidence,omitempty"`
}

// CSRF protection levels reported by AnalyzeClient.
const (
	CSRFNone     = "none"
	CSRFModerate = "moderate"
	CSRFStrong   = "strong"
)

// ClientReport covers the page as delivered to the browser.
type ClientReport struct {
	Libraries    []VulnerableLibrary `json:"libraries"`
	CSRF         CSRFReport          `json:"csrf"`
	TrustedTypes bool                `json:"trusted_types"`
	Issues       []string            `json:"issues"`
}

// VulnerableLibrary is a script include older than the release fixing CVEs.
type VulnerableLibrary struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	FixedIn  string   `json:"fixed_in"`
	CVEs     []string `json:"cves"`
	Severity string   `json:"severity"`
	CVSS     float64  `json:"cvss"`
	Summary  string   `json:"summary"`
}

// CSRFReport lists where anti-CSRF tokens were found. Protection is strong
// when a token and SameSite cookies are both present.
type CSRFReport struct {
	Protection      string   `json:"protection"`
	Forms           int      `json:"forms"`
	TokenLocations  []string `json:"token_locations"`
	SameSiteCookies bool     `json:"same_site_cookies"`
}
