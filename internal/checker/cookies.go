package checker

import (
	"net/http"
)

// AnalyzeCookies flags Set-Cookie headers that lack Secure, HttpOnly or SameSite.
// Secure is only demanded when the page itself was served over https.
func AnalyzeCookies(resp *http.Response) []CookieFinding {
	if resp == nil {
		return nil
	}
	raw := resp.Header.Values("Set-Cookie")
	if len(raw) == 0 {
		return nil
	}

	overTLS := resp.Request != nil && resp.Request.URL != nil && resp.Request.URL.Scheme == "https"
	findings := make([]CookieFinding, 0)
	for i, cookie := range resp.Cookies() {
		finding := CookieFinding{
			Name:            cookie.Name,
			MissingSecure:   overTLS && !cookie.Secure,
			MissingHTTPOnly: !cookie.HttpOnly,
			MissingSameSite: cookie.SameSite == 0 || cookie.SameSite == http.SameSiteDefaultMode,
		}
		if i < len(raw) {
			finding.OriginalSetCookie = raw[i]
		}
		if finding.MissingSecure || finding.MissingHTTPOnly || finding.MissingSameSite {
			findings = append(findings, finding)
		}
	}
	return findings
}
