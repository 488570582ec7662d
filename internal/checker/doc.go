// Package checker holds the passive analysis behind every webcheck endpoint.
//
// Nothing here performs network I/O on its own. Callers fetch a page or
// complete a TLS handshake (see internal/lookup) and hand the headers, body or
// connection state to the analyzers:
//
//   - ParseTarget, ValidateURL and ValidateDomain normalise user input.
//   - AnalyzeSecurityHeaders scores response headers and grades them A to F.
//   - AnalyzeCookies and AnalyzeCORS flag risky cookie and CORS settings.
//   - AnalyzeTLS grades a negotiated connection from 0 to 100 with a letter.
//   - DetectWAF recognises common web application firewalls and CDNs, and
//     HostingProvider names the platform behind a CNAME chain.
//   - AnalyzeClient looks for outdated script libraries and CSRF tokens.
package checker
