package checker

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func withFixedNow(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = prev })
}

type certOptions struct {
	dnsNames   []string
	notAfter   time.Time
	selfSigned bool
}

func newTestCert(t *testing.T, opts certOptions) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "leaf"},
		NotBefore:    fixedNow.Add(-24 * time.Hour),
		NotAfter:     opts.notAfter,
		DNSNames:     opts.dnsNames,
	}

	parent := template
	signer := key
	if !opts.selfSigned {
		caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			t.Fatalf("generate ca key: %v", err)
		}
		parent = &x509.Certificate{
			SerialNumber:          big.NewInt(1),
			Subject:               pkix.Name{CommonName: "Test CA"},
			NotBefore:             fixedNow.Add(-48 * time.Hour),
			NotAfter:              fixedNow.Add(5 * 365 * 24 * time.Hour),
			IsCA:                  true,
			BasicConstraintsValid: true,
			KeyUsage:              x509.KeyUsageCertSign,
		}
		signer = caKey
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func TestTLSVersionString(t *testing.T) {
	tests := []struct {
		version  uint16
		expected string
	}{
		{versionSSL30, "SSL 3.0"},
		{tls.VersionTLS10, "TLS 1.0"},
		{tls.VersionTLS11, "TLS 1.1"},
		{tls.VersionTLS12, "TLS 1.2"},
		{tls.VersionTLS13, "TLS 1.3"},
		{0x9999, "Unknown (0x9999)"},
	}
	for _, tt := range tests {
		if got := tlsVersionString(tt.version); got != tt.expected {
			t.Errorf("tlsVersionString(0x%04x) = %s, want %s", tt.version, got, tt.expected)
		}
	}
}

func TestAnalyzeTLS_Nil(t *testing.T) {
	if AnalyzeTLS(nil, "example.com") != nil {
		t.Fatal("expected nil analysis for nil state")
	}
}

func TestAnalyzeTLS_TLS13Perfect(t *testing.T) {
	withFixedNow(t)
	cert := newTestCert(t, certOptions{dnsNames: []string{"example.com"}, notAfter: fixedNow.Add(200 * 24 * time.Hour)})
	state := &tls.ConnectionState{
		Version:          tls.VersionTLS13,
		CipherSuite:      tls.TLS_AES_128_GCM_SHA256,
		PeerCertificates: []*x509.Certificate{cert},
	}

	analysis := AnalyzeTLS(state, "example.com")
	if analysis.Score != 100 {
		t.Fatalf("expected score 100, got %d (%+v)", analysis.Score, analysis.Issues)
	}
	if analysis.LetterGrade != "A+" {
		t.Errorf("expected A+, got %s", analysis.LetterGrade)
	}
	if !analysis.ForwardSecrecy {
		t.Error("TLS 1.3 always provides forward secrecy")
	}
	if analysis.Certificate == nil || !analysis.Certificate.HostnameMatch {
		t.Error("expected hostname to match certificate")
	}
	if analysis.Certificate.KeySize != 256 {
		t.Errorf("expected 256-bit key, got %d", analysis.Certificate.KeySize)
	}
}

func TestAnalyzeTLS_TLS12ExpiringSoon(t *testing.T) {
	withFixedNow(t)
	cert := newTestCert(t, certOptions{dnsNames: []string{"*.example.com"}, notAfter: fixedNow.Add(10 * 24 * time.Hour)})
	state := &tls.ConnectionState{
		Version:          tls.VersionTLS12,
		CipherSuite:      tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		PeerCertificates: []*x509.Certificate{cert},
	}

	analysis := AnalyzeTLS(state, "www.example.com")
	// TLS 1.2 (5) + expiring soon (5)
	if analysis.Score != 90 {
		t.Fatalf("expected score 90, got %d (%+v)", analysis.Score, analysis.Issues)
	}
	if analysis.LetterGrade != "A" {
		t.Errorf("expected A, got %s", analysis.LetterGrade)
	}
}

func TestAnalyzeTLS_LegacyWeakNoPFS(t *testing.T) {
	withFixedNow(t)
	cert := newTestCert(t, certOptions{dnsNames: []string{"example.com"}, notAfter: fixedNow.Add(365 * 24 * time.Hour)})
	state := &tls.ConnectionState{
		Version:          tls.VersionTLS10,
		CipherSuite:      tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA,
		PeerCertificates: []*x509.Certificate{cert},
	}

	analysis := AnalyzeTLS(state, "example.com")
	// legacy protocol (40) + weak cipher (20) + no PFS (10)
	if analysis.Score != 30 {
		t.Fatalf("expected score 30, got %d (%+v)", analysis.Score, analysis.Issues)
	}
	if analysis.LetterGrade != "F" {
		t.Errorf("expected F, got %s", analysis.LetterGrade)
	}
	if analysis.ForwardSecrecy {
		t.Error("RSA key exchange must not report forward secrecy")
	}
}

func TestAnalyzeTLS_SelfSignedMismatch(t *testing.T) {
	withFixedNow(t)
	cert := newTestCert(t, certOptions{dnsNames: []string{"other.test"}, notAfter: fixedNow.Add(365 * 24 * time.Hour), selfSigned: true})
	state := &tls.ConnectionState{
		Version:          tls.VersionTLS13,
		CipherSuite:      tls.TLS_AES_256_GCM_SHA384,
		PeerCertificates: []*x509.Certificate{cert},
	}

	analysis := AnalyzeTLS(state, "example.com")
	if !analysis.Certificate.SelfSigned {
		t.Fatal("expected self-signed certificate to be detected")
	}
	if analysis.Certificate.HostnameMatch {
		t.Fatal("expected hostname mismatch")
	}
	if analysis.Score != 40 {
		t.Errorf("expected score 40, got %d (%+v)", analysis.Score, analysis.Issues)
	}
}

func TestAnalyzeTLS_ExpiredIsZero(t *testing.T) {
	withFixedNow(t)
	cert := newTestCert(t, certOptions{dnsNames: []string{"example.com"}, notAfter: fixedNow.Add(-2 * time.Hour)})
	state := &tls.ConnectionState{
		Version:          tls.VersionTLS13,
		CipherSuite:      tls.TLS_AES_128_GCM_SHA256,
		PeerCertificates: []*x509.Certificate{cert},
	}

	analysis := AnalyzeTLS(state, "example.com")
	if analysis.Score != 0 || analysis.LetterGrade != "F" {
		t.Fatalf("expected expired certificate to score 0/F, got %d/%s", analysis.Score, analysis.LetterGrade)
	}
	if analysis.Certificate.DaysUntilExpiry >= 0 {
		t.Errorf("expected negative days until expiry, got %d", analysis.Certificate.DaysUntilExpiry)
	}
}

func TestLetterGradeForScore(t *testing.T) {
	cases := map[int]string{100: "A+", 95: "A+", 94: "A", 85: "A", 80: "B", 70: "C", 50: "D", 49: "F", 0: "F"}
	for score, want := range cases {
		if got := letterGradeForScore(score); got != want {
			t.Errorf("letterGradeForScore(%d) = %s, want %s", score, got, want)
		}
	}
}
