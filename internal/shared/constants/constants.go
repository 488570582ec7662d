package constants

import "time"

const (
	// MaxRequestBodyBytes caps JSON request bodies accepted by the API.
	MaxRequestBodyBytes = 1 << 20
	// MaxProbeBodyBytes caps how much of a scanned page is read for analysis.
	MaxProbeBodyBytes = 512 << 10
	// MaxWhoisResponseBytes caps a single port-43 WHOIS answer.
	MaxWhoisResponseBytes = 200 << 10
	// MaxUpstreamBodyBytes caps the answer of the optional upstream firewall service.
	MaxUpstreamBodyBytes = 1 << 20
)

const (
	// DefaultLookupTimeout bounds every scan lookup triggered by one API request.
	DefaultLookupTimeout = 20 * time.Second
	// TLSSoonExpiryWindow flags certificates that expire inside this window.
	TLSSoonExpiryWindow = 30 * 24 * time.Hour
	// DefaultCrtshBaseURL is the public Certificate Transparency search frontend.
	DefaultCrtshBaseURL = "https://crt.sh"
	// DefaultWhoisServer is the root WHOIS server queried before following referrals.
	DefaultWhoisServer = "whois.iana.org"
)

// TLSAnalyzerName is reported by /api/tls so the page can label the grading source.
const TLSAnalyzerName = "tlsGradingWorker"
