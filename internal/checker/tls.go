package checker

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/webcheck/internal/shared/constants"
)

// versionSSL30 is defined locally so SSL 3.0 can be reported without the
// deprecated tls.VersionSSL30 symbol.
const versionSSL30 uint16 = 0x0300

// weakCipherSuites lists suites that are broken or lack AEAD.
var weakCipherSuites = map[uint16]bool{
	tls.TLS_RSA_WITH_RC4_128_SHA:                true,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:           true,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA:            true,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA:            true,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA256:         true,
	tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA:        true,
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA:          true,
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA:     true,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256: true,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256:   true,
}

// Score penalties applied by AnalyzeTLS.
const (
	penaltyLegacyProtocol = 40
	penaltyTLS12          = 5
	penaltyWeakCipher     = 20
	penaltyNoPFS          = 10
	penaltyHostMismatch   = 30
	penaltySelfSigned     = 30
	penaltyWeakSignature  = 20
	penaltyShortKey       = 30
	penaltyExpiringSoon   = 5
)

// now is swapped in tests.
var now = time.Now

// AnalyzeTLS grades a negotiated TLS connection for host.
// The score starts at 100 and every finding subtracts its penalty; SSL 3.0 and
// expired certificates force the score to zero.
func AnalyzeTLS(state *tls.ConnectionState, host string) *TLSAnalysis {
	if state == nil {
		return nil
	}

	analysis := &TLSAnalysis{
		Version:     tlsVersionString(state.Version),
		CipherSuite: cipherSuiteString(state.CipherSuite),
		Protocol:    state.NegotiatedProtocol,
		Issues:      []TLSIssue{},
	}

	score := 100
	zero := false
	penalize := func(issue TLSIssue) {
		analysis.Issues = append(analysis.Issues, issue)
		score -= issue.Penalty
	}

	switch {
	case state.Version <= versionSSL30:
		zero = true
		penalize(TLSIssue{Severity: "critical", Description: "SSL 3.0 is broken (POODLE)", Remediation: "Disable SSL 3.0 and serve TLS 1.2 or 1.3"})
	case state.Version < tls.VersionTLS12:
		penalize(TLSIssue{Severity: "critical", Description: analysis.Version + " is deprecated", Remediation: "Disable TLS 1.0 and 1.1", Penalty: penaltyLegacyProtocol})
	case state.Version == tls.VersionTLS12:
		penalize(TLSIssue{Severity: "info", Description: "TLS 1.3 not negotiated", Remediation: "Enable TLS 1.3", Penalty: penaltyTLS12})
	}

	if weakCipherSuites[state.CipherSuite] {
		penalize(TLSIssue{Severity: "high", Description: "Weak cipher suite " + analysis.CipherSuite, Remediation: "Prefer AES-GCM or ChaCha20-Poly1305 suites", Penalty: penaltyWeakCipher})
	}

	analysis.ForwardSecrecy = state.Version >= tls.VersionTLS13 || strings.Contains(analysis.CipherSuite, "ECDHE") || strings.Contains(analysis.CipherSuite, "_DHE_")
	if !analysis.ForwardSecrecy {
		penalize(TLSIssue{Severity: "medium", Description: "Key exchange does not provide forward secrecy", Remediation: "Use ECDHE key exchange", Penalty: penaltyNoPFS})
	}

	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		analysis.Certificate = describeCertificate(leaf, host)
		if certificateExpired(analysis.Certificate) {
			zero = true
		}
		for _, issue := range certificateIssues(analysis.Certificate) {
			penalize(issue)
		}
	}

	if zero {
		score = 0
	}
	analysis.Score = clampScore(score, 100)
	analysis.LetterGrade = letterGradeForScore(analysis.Score)
	return analysis
}

func describeCertificate(cert *x509.Certificate, host string) *CertificateInfo {
	info := &CertificateInfo{
		Subject:         cert.Subject.String(),
		Issuer:          cert.Issuer.String(),
		NotBefore:       cert.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:        cert.NotAfter.UTC().Format(time.RFC3339),
		DNSNames:        cert.DNSNames,
		SelfSigned:      isSelfSigned(cert),
		DaysUntilExpiry: int(cert.NotAfter.Sub(now()).Hours() / 24),
		SignatureAlg:    cert.SignatureAlgorithm.String(),
		PublicKeyAlg:    cert.PublicKeyAlgorithm.String(),
		KeySize:         publicKeyBits(cert.PublicKey),
	}
	if host != "" {
		info.HostnameMatch = cert.VerifyHostname(host) == nil
	}
	// Expired certificates report negative days.
	if cert.NotAfter.Before(now()) && info.DaysUntilExpiry >= 0 {
		info.DaysUntilExpiry = -1
	}
	return info
}

func certificateExpired(info *CertificateInfo) bool {
	return info.DaysUntilExpiry < 0
}

func certificateIssues(info *CertificateInfo) []TLSIssue {
	var issues []TLSIssue

	if certificateExpired(info) {
		issues = append(issues, TLSIssue{Severity: "critical", Description: "Certificate expired on " + info.NotAfter, Remediation: "Renew the certificate"})
	} else if time.Duration(info.DaysUntilExpiry)*24*time.Hour <= constants.TLSSoonExpiryWindow {
		issues = append(issues, TLSIssue{Severity: "low", Description: fmt.Sprintf("Certificate expires in %d days", info.DaysUntilExpiry), Remediation: "Plan the renewal", Penalty: penaltyExpiringSoon})
	}

	if !info.HostnameMatch {
		issues = append(issues, TLSIssue{Severity: "high", Description: "Certificate does not cover the requested hostname", Remediation: "Add the hostname to the certificate SAN list", Penalty: penaltyHostMismatch})
	}
	if info.SelfSigned {
		issues = append(issues, TLSIssue{Severity: "high", Description: "Self-signed certificate", Remediation: "Use a certificate issued by a public CA", Penalty: penaltySelfSigned})
	}

	sig := strings.ToLower(info.SignatureAlg)
	if strings.Contains(sig, "md5") || strings.Contains(sig, "sha1") {
		issues = append(issues, TLSIssue{Severity: "high", Description: "Weak signature algorithm " + info.SignatureAlg, Remediation: "Reissue with SHA-256 or stronger", Penalty: penaltyWeakSignature})
	}

	switch {
	case info.PublicKeyAlg == "RSA" && info.KeySize > 0 && info.KeySize < 2048:
		issues = append(issues, TLSIssue{Severity: "critical", Description: fmt.Sprintf("RSA key of %d bits", info.KeySize), Remediation: "Use RSA 2048 bits or more", Penalty: penaltyShortKey})
	case info.PublicKeyAlg == "ECDSA" && info.KeySize > 0 && info.KeySize < 224:
		issues = append(issues, TLSIssue{Severity: "critical", Description: fmt.Sprintf("ECDSA key of %d bits", info.KeySize), Remediation: "Use P-256 or larger", Penalty: penaltyShortKey})
	}

	return issues
}

func isSelfSigned(cert *x509.Certificate) bool {
	if cert.Subject.String() != cert.Issuer.String() {
		return false
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}

func publicKeyBits(key any) int {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return k.N.BitLen()
	case *ecdsa.PublicKey:
		return k.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	default:
		return 0
	}
}

// letterGradeForScore maps a 0-100 TLS score onto A+ through F.
func letterGradeForScore(score int) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 85:
		return "A"
	case score >= 75:
		return "B"
	case score >= 65:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

func tlsVersionString(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSL 3.0"
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

func cipherSuiteString(suite uint16) string {
	if name := tls.CipherSuiteName(suite); name != "" {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}
