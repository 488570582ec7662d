package checker

import (
	"net/http"
	"strings"
)

// AnalyzeCORS inspects CORS response headers for permissive settings.
// It returns nil when the response carries no CORS headers at all, which is the
// safe default for a page that is not meant to be read cross-origin.
func AnalyzeCORS(headers http.Header) *CORSReport {
	if headers == nil {
		return nil
	}
	report := &CORSReport{
		AllowOrigin:      headers.Get("Access-Control-Allow-Origin"),
		AllowMethods:     headers.Get("Access-Control-Allow-Methods"),
		AllowHeaders:     headers.Get("Access-Control-Allow-Headers"),
		ExposeHeaders:    headers.Get("Access-Control-Expose-Headers"),
		AllowCredentials: strings.EqualFold(headers.Get("Access-Control-Allow-Credentials"), "true"),
		VaryOrigin:       varyIncludesOrigin(headers.Values("Vary")),
		Issues:           []string{},
	}
	if report.AllowOrigin == "" && report.AllowMethods == "" && report.AllowHeaders == "" && !report.AllowCredentials {
		return nil
	}

	switch report.AllowOrigin {
	case "*":
		report.AllowsAnyOrigin = true
		report.Issues = append(report.Issues, "CORS allows any origin (*)")
		if report.AllowCredentials {
			report.Issues = append(report.Issues, "Credentials allowed together with wildcard origin")
		}
	case "null":
		report.Issues = append(report.Issues, "CORS trusts the 'null' origin, reachable from sandboxed iframes")
	}

	if strings.Contains(report.AllowHeaders, "*") {
		report.Issues = append(report.Issues, "Access-Control-Allow-Headers allows any header (*)")
	}
	if strings.Contains(report.ExposeHeaders, "*") {
		report.Issues = append(report.Issues, "Access-Control-Expose-Headers exposes all headers (*)")
	}
	if report.AllowOrigin != "" && !report.AllowsAnyOrigin && !report.VaryOrigin {
		report.Issues = append(report.Issues, "Vary: Origin missing; shared caches may serve the wrong origin")
	}

	return report
}

func varyIncludesOrigin(values []string) bool {
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "origin") {
				return true
			}
		}
	}
	return false
}
