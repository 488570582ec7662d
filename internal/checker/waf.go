package checker

import (
	"net/http"
	"strings"
)

// wafSignature describes the passive fingerprints of one firewall vendor.
type wafSignature struct {
	Name string
	// Headers whose mere presence identifies the vendor.
	HeaderNames []string
	// Substrings matched against the lower-cased Server and Via headers.
	ServerTokens []string
	// Cookie name prefixes set by the vendor.
	CookiePrefixes []string
	// Substrings matched against the response body.
	BodyMarkers []string
	// DNS suffixes matched against the CNAME chain.
	CNAMESuffixes []string
}

var wafSignatures = []wafSignature{
	{
		Name:           "Cloudflare",
		HeaderNames:    []string{"Cf-Ray", "Cf-Cache-Status", "Cf-Mitigated"},
		ServerTokens:   []string{"cloudflare"},
		CookiePrefixes: []string{"__cf_bm", "__cflb", "cf_clearance"},
		BodyMarkers:    []string{"Attention Required! | Cloudflare", "cf-error-details"},
		CNAMESuffixes:  []string{"cloudflare.com", "cloudflare.net"},
	},
	{
		Name:           "AWS WAF",
		HeaderNames:    []string{"X-Amz-Cf-Id", "X-Amz-Cf-Pop", "X-Amzn-Waf-Action"},
		ServerTokens:   []string{"cloudfront", "awselb"},
		CookiePrefixes: []string{"AWSALB", "aws-waf-token"},
		BodyMarkers:    []string{"AWS WAF"},
		CNAMESuffixes:  []string{"cloudfront.net", "awsglobalaccelerator.com"},
	},
	{
		Name:          "Akamai",
		HeaderNames:   []string{"X-Akamai-Transformed", "Akamai-Origin-Hop", "Akamai-Grn"},
		ServerTokens:  []string{"akamaighost", "akamainetstorage"},
		BodyMarkers:   []string{"AkamaiGHost"},
		CNAMESuffixes: []string{"edgekey.net", "akamaiedge.net", "akamaitechnologies.com", "akamaihd.net", "edgesuite.net"},
	},
	{
		Name:           "Imperva Incapsula",
		HeaderNames:    []string{"X-Iinfo"},
		ServerTokens:   []string{"incapsula", "imperva"},
		CookiePrefixes: []string{"visid_incap", "incap_ses", "nlbi_"},
		BodyMarkers:    []string{"Incapsula incident ID", "_Incapsula_Resource"},
		CNAMESuffixes:  []string{"incapdns.net", "impervadns.net"},
	},
	{
		Name:           "Sucuri",
		HeaderNames:    []string{"X-Sucuri-Id", "X-Sucuri-Cache"},
		ServerTokens:   []string{"sucuri"},
		CookiePrefixes: []string{"sucuri_cloudproxy"},
		BodyMarkers:    []string{"Sucuri WebSite Firewall"},
		CNAMESuffixes:  []string{"sucuri.net"},
	},
	{
		Name:           "F5 BIG-IP ASM",
		HeaderNames:    []string{"X-Wa-Info", "X-Cnection"},
		ServerTokens:   []string{"bigip", "big-ip"},
		CookiePrefixes: []string{"BIGipServer", "TS01"},
		BodyMarkers:    []string{"The requested URL was rejected. Please consult with your administrator."},
	},
	{
		Name:           "Barracuda",
		HeaderNames:    []string{"Barra-Counter"},
		ServerTokens:   []string{"barracuda"},
		CookiePrefixes: []string{"barra_counter_session"},
	},
	{
		Name:         "ModSecurity",
		ServerTokens: []string{"mod_security", "modsecurity"},
		BodyMarkers:  []string{"This error was generated by Mod_Security"},
	},
	{
		Name:          "Fastly",
		HeaderNames:   []string{"Fastly-Debug-Digest", "X-Fastly-Request-Id"},
		ServerTokens:  []string{"fastly"},
		CNAMESuffixes: []string{"fastly.net", "fastlylb.net"},
	},
	{
		Name:          "Azure Front Door",
		HeaderNames:   []string{"X-Azure-Ref", "X-Azure-FDID"},
		CNAMESuffixes: []string{"azurefd.net", "azureedge.net", "trafficmanager.net"},
	},
	{
		Name:          "Edgecast",
		ServerTokens:  []string{"ecacc", "ecs ("},
		CNAMESuffixes: []string{"edgecastcdn.net"},
	},
}

// DetectWAF passively identifies a web application firewall from a response
// and the CNAME chain of its host. The first vendor with any matching
// fingerprint wins; every matching fingerprint of that vendor is reported.
func DetectWAF(headers http.Header, body string, cnames []string) *WAFDetection {
	server := strings.ToLower(headers.Get("Server") + " " + headers.Get("Via"))
	cookies := headers.Values("Set-Cookie")

	for _, sig := range wafSignatures {
		var evidence []string

		for _, name := range sig.HeaderNames {
			if headers.Get(name) != "" {
				evidence = append(evidence, "header "+http.CanonicalHeaderKey(name))
			}
		}
		for _, token := range sig.ServerTokens {
			if strings.Contains(server, token) {
				evidence = append(evidence, "server "+strings.TrimSpace(server))
				break
			}
		}
		for _, prefix := range sig.CookiePrefixes {
			if cookieWithPrefix(cookies, prefix) {
				evidence = append(evidence, "cookie "+prefix)
			}
		}
		for _, marker := range sig.BodyMarkers {
			if body != "" && strings.Contains(body, marker) {
				evidence = append(evidence, "body "+marker)
			}
		}
		for _, cname := range cnames {
			cname = strings.TrimSuffix(strings.ToLower(cname), ".")
			for _, suffix := range sig.CNAMESuffixes {
				if cname == suffix || strings.HasSuffix(cname, "."+suffix) {
					evidence = append(evidence, "cname "+cname)
				}
			}
		}

		if len(evidence) > 0 {
			return &WAFDetection{Detected: true, Name: sig.Name, Evidence: evidence}
		}
	}

	return &WAFDetection{Detected: false}
}

func cookieWithPrefix(setCookies []string, prefix string) bool {
	for _, c := range setCookies {
		name, _, _ := strings.Cut(c, "=")
		if strings.HasPrefix(strings.TrimSpace(name), prefix) {
			return true
		}
	}
	return false
}
