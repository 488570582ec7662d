// Package lookup contains the network collaborators behind the scan endpoints
// and the error classification they share.
//
// Subpackages:
//
//   - probe: fetches the scanned page and performs raw TLS handshakes.
//   - crtsh: lists certificate names for a domain from crt.sh.
//   - whois: port-43 WHOIS with referral following and field extraction.
//   - netinfo: DNS resolution and Team Cymru ASN/country data via miekg/dns.
//
// None of these retry or cache; every call is a single attempt bounded by the
// caller's context.
package lookup
