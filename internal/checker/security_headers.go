package checker

import (
	"net/http"
	"strconv"
	"strings"
)

// headerRule describes how one security header is scored.
type headerRule struct {
	Name           string
	Severity       string // "high", "medium"
	MaxScore       int
	Evaluate       func(value string) (int, []string, string)
	Recommendation string
}

// securityHeaderRules is evaluated in order so results and the missing list are stable.
var securityHeaderRules = []headerRule{
	{
		Name:           "Strict-Transport-Security",
		Severity:       "high",
		MaxScore:       20,
		Evaluate:       evaluateHSTS,
		Recommendation: "Add 'Strict-Transport-Security: max-age=31536000; includeSubDomains; preload'",
	},
	{
		Name:           "Content-Security-Policy",
		Severity:       "high",
		MaxScore:       20,
		Evaluate:       evaluateCSP,
		Recommendation: "Define a Content-Security-Policy with at least default-src and script-src",
	},
	{
		Name:           "X-Frame-Options",
		Severity:       "high",
		MaxScore:       15,
		Evaluate:       evaluateFrameOptions,
		Recommendation: "Add 'X-Frame-Options: DENY' or 'SAMEORIGIN'",
	},
	{
		Name:           "X-Content-Type-Options",
		Severity:       "high",
		MaxScore:       15,
		Evaluate:       evaluateContentTypeOptions,
		Recommendation: "Add 'X-Content-Type-Options: nosniff'",
	},
	{
		Name:           "Referrer-Policy",
		Severity:       "medium",
		MaxScore:       10,
		Evaluate:       evaluateReferrerPolicy,
		Recommendation: "Add 'Referrer-Policy: strict-origin-when-cross-origin'",
	},
	{
		Name:           "Permissions-Policy",
		Severity:       "medium",
		MaxScore:       10,
		Evaluate:       evaluatePermissionsPolicy,
		Recommendation: "Add a Permissions-Policy such as 'geolocation=(), microphone=(), camera=()'",
	},
	{
		Name:           "Cross-Origin-Opener-Policy",
		Severity:       "medium",
		MaxScore:       5,
		Evaluate:       evaluateOpenerPolicy,
		Recommendation: "Add 'Cross-Origin-Opener-Policy: same-origin'",
	},
	{
		Name:           "Cross-Origin-Embedder-Policy",
		Severity:       "medium",
		MaxScore:       5,
		Evaluate:       evaluateEmbedderPolicy,
		Recommendation: "Add 'Cross-Origin-Embedder-Policy: require-corp'",
	},
	{
		Name:           "Content-Type",
		Severity:       "medium",
		MaxScore:       5,
		Evaluate:       evaluateContentType,
		Recommendation: "Send Content-Type with an explicit charset, e.g. 'text/html; charset=utf-8'",
	},
}

// disclosureHeaders leak server software and versions.
var disclosureHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
	"X-Generator",
}

// oneYear is the HSTS max-age preload lists require.
const oneYear = 31536000

// AnalyzeSecurityHeaders scores HTTP response headers against common hardening guidance.
func AnalyzeSecurityHeaders(headers http.Header) *SecurityHeadersResult {
	result := &SecurityHeadersResult{
		Headers:  make(map[string]HeaderStatus, len(securityHeaderRules)),
		Missing:  []string{},
		Warnings: []string{},
	}

	for _, rule := range securityHeaderRules {
		result.MaxScore += rule.MaxScore

		value := strings.TrimSpace(headers.Get(rule.Name))
		if value == "" {
			result.Headers[rule.Name] = HeaderStatus{
				Severity:       rule.Severity,
				MaxScore:       rule.MaxScore,
				Recommendation: rule.Recommendation,
			}
			result.Missing = append(result.Missing, rule.Name)
			continue
		}

		score, issues, recommendation := rule.Evaluate(value)
		score = clampScore(score, rule.MaxScore)
		result.Headers[rule.Name] = HeaderStatus{
			Present:        true,
			Value:          value,
			Severity:       rule.Severity,
			Score:          score,
			MaxScore:       rule.MaxScore,
			Issues:         issues,
			Recommendation: recommendation,
		}
		result.Score += score
	}

	result.Warnings = append(result.Warnings, deprecatedHeaderWarnings(headers)...)
	result.Warnings = append(result.Warnings, disclosureWarnings(headers)...)
	result.Grade = gradeForScore(result.Score, result.MaxScore)

	return result
}

func evaluateHSTS(value string) (int, []string, string) {
	score := 20
	var issues []string
	directives := parseDirectives(value, ";")

	maxAge, ok := directives["max-age"]
	switch {
	case !ok:
		issues = append(issues, "Missing 'max-age' directive")
		score -= 10
	default:
		seconds, err := strconv.Atoi(strings.Trim(maxAge, `"`))
		switch {
		case err != nil:
			issues = append(issues, "max-age is not a number")
			score -= 10
		case seconds == 0:
			return 0, []string{"max-age is 0, HSTS is disabled"}, "Set max-age to at least 31536000"
		case seconds < oneYear:
			issues = append(issues, "max-age is shorter than one year")
			score -= 3
		}
	}

	if _, ok := directives["includesubdomains"]; !ok {
		issues = append(issues, "Missing 'includeSubDomains' directive")
		score -= 5
	}
	if _, ok := directives["preload"]; !ok {
		issues = append(issues, "Missing 'preload' directive")
		score -= 2
	}

	if len(issues) == 0 {
		return score, nil, "HSTS is well configured"
	}
	return score, issues, "Use 'max-age=31536000; includeSubDomains; preload'"
}

func evaluateCSP(value string) (int, []string, string) {
	score := 20
	var issues []string
	lower := strings.ToLower(value)
	directives := parseCSPDirectives(lower)

	if strings.Contains(lower, "'unsafe-inline'") {
		issues = append(issues, "'unsafe-inline' weakens script and style protection")
		score -= 5
	}
	if strings.Contains(lower, "'unsafe-eval'") {
		issues = append(issues, "'unsafe-eval' allows eval() and friends")
		score -= 5
	}
	for name, sources := range directives {
		for _, src := range sources {
			if src == "*" {
				issues = append(issues, "Wildcard source in "+name)
				score -= 3
				break
			}
		}
	}
	if _, ok := directives["default-src"]; !ok {
		issues = append(issues, "Missing 'default-src' fallback")
		score -= 3
	}
	if _, ok := directives["script-src"]; !ok {
		issues = append(issues, "No explicit 'script-src'")
		score -= 2
	}
	for _, src := range directives["script-src"] {
		switch {
		case src == "data:" || src == "blob:" || src == "filesystem:":
			issues = append(issues, "script-src allows "+src+" URLs")
			score -= 2
		case strings.HasPrefix(src, "http:"):
			issues = append(issues, "script-src allows plain http sources")
			score -= 2
		}
	}

	if len(issues) == 0 {
		return score, nil, "CSP is present with a strict configuration"
	}
	return score, issues, "Tighten the Content-Security-Policy"
}

func parseCSPDirectives(value string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(value, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		result[fields[0]] = fields[1:]
	}
	return result
}

// parseDirectives splits "a=1; b; c=x" into lower-cased keys with raw values.
func parseDirectives(value, sep string) map[string]string {
	result := make(map[string]string)
	for _, part := range strings.Split(value, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, _ := strings.Cut(part, "=")
		result[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return result
}

func evaluateFrameOptions(value string) (int, []string, string) {
	switch v := strings.ToUpper(value); {
	case v == "DENY" || v == "SAMEORIGIN":
		return 15, nil, "X-Frame-Options is properly configured"
	case strings.HasPrefix(v, "ALLOW-FROM"):
		return 5, []string{"ALLOW-FROM is not supported by modern browsers"}, "Use CSP frame-ancestors instead"
	default:
		return 0, []string{"Invalid X-Frame-Options value"}, "Set to 'DENY' or 'SAMEORIGIN'"
	}
}

func evaluateContentTypeOptions(value string) (int, []string, string) {
	if strings.EqualFold(value, "nosniff") {
		return 15, nil, "X-Content-Type-Options is properly configured"
	}
	return 0, []string{"Value must be 'nosniff'"}, "Set to 'nosniff'"
}

func evaluateReferrerPolicy(value string) (int, []string, string) {
	// The browser applies the last policy it understands.
	policies := strings.Split(strings.ToLower(value), ",")
	policy := strings.TrimSpace(policies[len(policies)-1])

	switch policy {
	case "no-referrer", "same-origin", "strict-origin", "strict-origin-when-cross-origin":
		return 10, nil, "Referrer-Policy is properly configured"
	case "unsafe-url", "origin-when-cross-origin", "no-referrer-when-downgrade":
		return 5, []string{"Policy '" + policy + "' can leak full URLs to other sites"}, "Use 'strict-origin-when-cross-origin'"
	default:
		return 7, []string{"Unrecognised referrer policy '" + policy + "'"}, "Use 'strict-origin-when-cross-origin'"
	}
}

func evaluatePermissionsPolicy(value string) (int, []string, string) {
	features := parseDirectives(value, ",")
	if len(features) < 2 {
		return 7, []string{"Permissions-Policy restricts very few features"}, "Restrict unused features such as camera, microphone and geolocation"
	}
	return 10, nil, "Permissions-Policy is present"
}

func evaluateOpenerPolicy(value string) (int, []string, string) {
	switch strings.ToLower(value) {
	case "same-origin", "same-origin-allow-popups":
		return 5, nil, "Cross-Origin-Opener-Policy is properly configured"
	case "unsafe-none":
		return 1, []string{"'unsafe-none' provides no isolation"}, "Set to 'same-origin'"
	default:
		return 0, []string{"Invalid COOP value"}, "Set to 'same-origin'"
	}
}

func evaluateEmbedderPolicy(value string) (int, []string, string) {
	switch strings.ToLower(value) {
	case "require-corp", "credentialless":
		return 5, nil, "Cross-Origin-Embedder-Policy is properly configured"
	case "unsafe-none":
		return 1, []string{"'unsafe-none' provides no isolation"}, "Set to 'require-corp'"
	default:
		return 0, []string{"Invalid COEP value"}, "Set to 'require-corp' or 'credentialless'"
	}
}

func evaluateContentType(value string) (int, []string, string) {
	lower := strings.ToLower(value)
	textual := false
	for _, prefix := range []string{"text/", "application/javascript", "application/json", "application/xml"} {
		if strings.HasPrefix(lower, prefix) {
			textual = true
			break
		}
	}
	if textual && !strings.Contains(lower, "charset=") {
		return 2, []string{"Textual content without a charset"}, "Add a charset parameter, e.g. 'charset=utf-8'"
	}
	return 5, nil, "Content-Type is present"
}

func deprecatedHeaderWarnings(headers http.Header) []string {
	var warnings []string
	if v := headers.Get("X-XSS-Protection"); v != "" && v != "0" {
		warnings = append(warnings, "X-XSS-Protection is deprecated and can introduce XSS; set it to '0' or remove it")
	}
	if headers.Get("Expect-CT") != "" {
		warnings = append(warnings, "Expect-CT is deprecated; remove it")
	}
	if headers.Get("Public-Key-Pins") != "" {
		warnings = append(warnings, "Public-Key-Pins (HPKP) is deprecated and can lock out visitors; remove it")
	}
	return warnings
}

func disclosureWarnings(headers http.Header) []string {
	var warnings []string
	for _, name := range disclosureHeaders {
		if v := headers.Get(name); v != "" {
			warnings = append(warnings, name+" header discloses '"+v+"'")
		}
	}
	return warnings
}

func clampScore(score, maxScore int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// gradeForScore converts a score into an A-F grade by percentage.
func gradeForScore(score, maxScore int) string {
	if maxScore <= 0 {
		return "F"
	}
	percentage := float64(score) / float64(maxScore) * 100

	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	case percentage >= 50:
		return "E"
	default:
		return "F"
	}
}
