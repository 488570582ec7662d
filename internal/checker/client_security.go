package checker

import (
	"bytes"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// libraryAdvisory pins one known-vulnerable range of a script library.
// Versions below FixedIn are reported.
type libraryAdvisory struct {
	Name     string
	Pattern  *regexp.Regexp
	FixedIn  string
	CVEs     []string
	Severity string
	CVSS     float64
	Summary  string
}

// Patterns run against lower-cased script src attributes.
var libraryAdvisories = []libraryAdvisory{
	{
		Name:     "jQuery",
		Pattern:  regexp.MustCompile(`jquery[/@-](\d+\.\d+(?:\.\d+)?)`),
		FixedIn:  "3.5.0",
		CVEs:     []string{"CVE-2020-11022", "CVE-2020-11023"},
		Severity: "high",
		CVSS:     6.1,
		Summary:  "XSS in htmlPrefilter",
	},
	{
		Name:     "AngularJS",
		Pattern:  regexp.MustCompile(`angular(?:js)?[/@-](\d+\.\d+(?:\.\d+)?)`),
		FixedIn:  "1.7.9",
		CVEs:     []string{"CVE-2019-10768"},
		Severity: "critical",
		CVSS:     7.5,
		Summary:  "prototype pollution",
	},
	{
		Name:     "Lodash",
		Pattern:  regexp.MustCompile(`lodash(?:\.js)?[/@-](\d+\.\d+(?:\.\d+)?)`),
		FixedIn:  "4.17.12",
		CVEs:     []string{"CVE-2019-10744"},
		Severity: "critical",
		CVSS:     9.1,
		Summary:  "prototype pollution",
	},
	{
		Name:     "Moment.js",
		Pattern:  regexp.MustCompile(`moment(?:\.js)?[/@-](\d+\.\d+(?:\.\d+)?)`),
		FixedIn:  "2.29.2",
		CVEs:     []string{"CVE-2022-24785"},
		Severity: "high",
		CVSS:     7.5,
		Summary:  "path traversal in locale loading",
	},
	{
		Name:     "Bootstrap",
		Pattern:  regexp.MustCompile(`bootstrap[/@-](\d+\.\d+(?:\.\d+)?)`),
		FixedIn:  "3.4.0",
		CVEs:     []string{"CVE-2019-8331"},
		Severity: "medium",
		CVSS:     6.1,
		Summary:  "XSS in tooltip and popover",
	},
}

var (
	csrfMetaNames   = []string{"csrf-token", "_csrf", "xsrf-token", "csrf-param"}
	csrfInputNames  = []string{"csrf", "_csrf", "csrf_token", "csrfmiddlewaretoken", "authenticity_token", "__requestverificationtoken", "_token"}
	csrfCookieNames = []string{"xsrf-token", "csrf_token", "csrftoken", "_csrf"}
)

// AnalyzeClient inspects the delivered page for client-side weaknesses:
// outdated script libraries, missing CSRF tokens on forms and the absence of
// Trusted Types enforcement in the CSP.
func AnalyzeClient(body []byte, headers http.Header, cookies []*http.Cookie) *ClientReport {
	report := &ClientReport{
		Libraries:    []VulnerableLibrary{},
		Issues:       []string{},
		TrustedTypes: trustedTypesRequired(headers),
	}

	var doc *goquery.Document
	if len(body) > 0 {
		doc, _ = goquery.NewDocumentFromReader(bytes.NewReader(body))
	}
	if doc != nil {
		report.Libraries = vulnerableLibraries(doc)
		for _, lib := range report.Libraries {
			report.Issues = append(report.Issues,
				strings.ToUpper(lib.Severity)+": "+lib.Name+" "+lib.Version+" ("+strings.Join(lib.CVEs, ", ")+")")
		}
	}

	report.CSRF = csrfProtection(doc, headers, cookies)
	if report.CSRF.Forms > 0 && report.CSRF.Protection == CSRFNone {
		report.Issues = append(report.Issues, "forms without CSRF token or SameSite cookies")
	}
	return report
}

func vulnerableLibraries(doc *goquery.Document) []VulnerableLibrary {
	found := []VulnerableLibrary{}
	seen := make(map[string]bool)
	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src := strings.ToLower(sel.AttrOr("src", ""))
		for _, adv := range libraryAdvisories {
			m := adv.Pattern.FindStringSubmatch(src)
			if m == nil || compareVersion(m[1], adv.FixedIn) >= 0 {
				continue
			}
			key := adv.Name + "@" + m[1]
			if seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, VulnerableLibrary{
				Name:     adv.Name,
				Version:  m[1],
				FixedIn:  adv.FixedIn,
				CVEs:     adv.CVEs,
				Severity: adv.Severity,
				CVSS:     adv.CVSS,
				Summary:  adv.Summary,
			})
		}
	})
	return found
}

// compareVersion orders dotted numeric versions; missing parts count as 0.
func compareVersion(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var na, nb int
		if i < len(pa) {
			na, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			nb, _ = strconv.Atoi(pb[i])
		}
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
	}
	return 0
}

func csrfProtection(doc *goquery.Document, headers http.Header, cookies []*http.Cookie) CSRFReport {
	report := CSRFReport{Protection: CSRFNone, TokenLocations: []string{}}
	hasToken := false
	mark := func(location string) {
		hasToken = true
		for _, l := range report.TokenLocations {
			if l == location {
				return
			}
		}
		report.TokenLocations = append(report.TokenLocations, location)
	}

	if doc != nil {
		report.Forms = doc.Find("form").Length()
		doc.Find("meta[name]").Each(func(_ int, sel *goquery.Selection) {
			if containsFold(csrfMetaNames, sel.AttrOr("name", "")) {
				mark("meta")
			}
		})
		doc.Find("input[name]").Each(func(_ int, sel *goquery.Selection) {
			if strings.EqualFold(sel.AttrOr("type", ""), "hidden") && containsFold(csrfInputNames, sel.AttrOr("name", "")) {
				mark("form")
			}
		})
	}
	for _, name := range []string{"X-CSRF-Token", "X-XSRF-Token", "X-CSRFToken"} {
		if headers.Get(name) != "" {
			mark("header")
		}
	}
	for _, c := range cookies {
		if containsFold(csrfCookieNames, c.Name) {
			mark("cookie")
		}
		if c.SameSite == http.SameSiteLaxMode || c.SameSite == http.SameSiteStrictMode {
			report.SameSiteCookies = true
		}
	}

	switch {
	case hasToken && report.SameSiteCookies:
		report.Protection = CSRFStrong
	case hasToken || report.SameSiteCookies:
		report.Protection = CSRFModerate
	}
	return report
}

// trustedTypesRequired reports whether the CSP (enforced or report-only)
// carries require-trusted-types-for 'script'.
func trustedTypesRequired(headers http.Header) bool {
	for _, name := range []string{"Content-Security-Policy", "Content-Security-Policy-Report-Only"} {
		for _, directive := range strings.Split(strings.ToLower(headers.Get(name)), ";") {
			fields := strings.Fields(directive)
			if len(fields) > 1 && fields[0] == "require-trusted-types-for" && fields[1] == "'script'" {
				return true
			}
		}
	}
	return false
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
