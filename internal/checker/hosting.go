package checker

import "strings"

// hostingProviders maps CNAME targets to the platform serving a site.
var hostingProviders = []struct {
	Name     string
	Suffixes []string
}{
	{"GitHub Pages", []string{"github.io", "githubusercontent.com"}},
	{"AWS S3", []string{"s3.amazonaws.com", "s3-website.amazonaws.com"}},
	{"AWS CloudFront", []string{"cloudfront.net"}},
	{"AWS Elastic Beanstalk", []string{"elasticbeanstalk.com"}},
	{"Heroku", []string{"herokuapp.com", "herokussl.com", "herokudns.com"}},
	{"Azure", []string{"azurewebsites.net", "cloudapp.azure.com", "azurefd.net", "azureedge.net"}},
	{"Google Cloud", []string{"ghs.googlehosted.com", "appspot.com", "run.app"}},
	{"Cloudflare", []string{"cloudflare.net", "pages.dev", "workers.dev"}},
	{"Fastly", []string{"fastly.net", "fastlylb.net"}},
	{"Akamai", []string{"edgekey.net", "akamaiedge.net", "edgesuite.net"}},
	{"Netlify", []string{"netlify.app", "netlify.com"}},
	{"Vercel", []string{"vercel.app", "vercel-dns.com", "now.sh"}},
	{"Shopify", []string{"myshopify.com"}},
	{"WordPress.com", []string{"wordpress.com", "wpcomstaging.com"}},
	{"Ghost", []string{"ghost.io"}},
	{"Webflow", []string{"webflow.io", "proxy-ssl.webflow.com"}},
	{"Squarespace", []string{"squarespace.com"}},
	{"Pantheon", []string{"pantheonsite.io"}},
	{"Zendesk", []string{"zendesk.com"}},
	{"StatusPage", []string{"statuspage.io"}},
	{"Bitbucket", []string{"bitbucket.io"}},
	{"Surge.sh", []string{"surge.sh"}},
	{"DigitalOcean Spaces", []string{"digitaloceanspaces.com"}},
}

// HostingProvider names the platform a CNAME chain points at, or "" when
// no entry matches.
func HostingProvider(cnames []string) string {
	for _, cname := range cnames {
		cname = strings.TrimSuffix(strings.ToLower(cname), ".")
		for _, p := range hostingProviders {
			for _, suffix := range p.Suffixes {
				if cname == suffix || strings.HasSuffix(cname, "."+suffix) {
					return p.Name
				}
			}
		}
	}
	return ""
}
