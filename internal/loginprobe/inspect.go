package loginprobe

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bahjat/login-probe-tool/internal/model"
)

// recentIssuanceWindow flags certificates younger than phishing campaigns
// typically live; freshly issued certs on a redirect target are a signal.
const recentIssuanceWindow = 30 * 24 * time.Hour

// trustedIssuers are substrings of issuer names from widely deployed CAs.
var trustedIssuers = []string{
	"let's encrypt", "google trust services", "sectigo", "digicert",
	"globalsign", "amazon", "buypass", "godaddy",
}

// SignalCollector gathers best-effort advisory signals about the landing
// page. Every method returns nil instead of failing: signals enrich the
// report but never change the verdict.
type SignalCollector struct {
	dialTimeout time.Duration
}

// NewSignalCollector returns a SignalCollector with a 10s dial timeout.
func NewSignalCollector() *SignalCollector {
	return &SignalCollector{dialTimeout: 10 * time.Second}
}

// PageMeta scrapes title and description metadata from the landing page.
func (c *SignalCollector) PageMeta(pageHTML string) *model.PageMeta {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	meta := &model.PageMeta{
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		Description:   strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		OGTitle:       strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")),
		OGDescription: strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", "")),
	}
	if *meta == (model.PageMeta{}) {
		return nil
	}
	return meta
}

// Certificate inspects the TLS certificate presented by the final URL's
// host. Verification is skipped on purpose: the whole point is to look at
// certificates that may not verify.
func (c *SignalCollector) Certificate(ctx context.Context, rawURL string) *model.CertificateInfo {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return nil
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.dialTimeout},
		Config: &tls.Config{
			ServerName:         u.Hostname(),
			InsecureSkipVerify: true, // #nosec G402 -- inspection must see untrusted certs
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return nil
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	return certInfo(state.PeerCertificates[0], time.Now())
}

// certInfo derives the report flags from a leaf certificate.
func certInfo(leaf *x509.Certificate, now time.Time) *model.CertificateInfo {
	issuer := leaf.Issuer.String()
	return &model.CertificateInfo{
		Issuer:          issuer,
		ValidFrom:       leaf.NotBefore,
		ValidTo:         leaf.NotAfter,
		RecentlyIssued:  now.Sub(leaf.NotBefore) < recentIssuanceWindow,
		SelfSigned:      bytes.Equal(leaf.RawIssuer, leaf.RawSubject),
		UntrustedIssuer: !isTrustedIssuer(issuer),
	}
}

func isTrustedIssuer(issuer string) bool {
	issuer = strings.ToLower(issuer)
	for _, t := range trustedIssuers {
		if strings.Contains(issuer, t) {
			return true
		}
	}
	return false
}

// Resolve reports whether the final URL's host resolves in DNS.
func (c *SignalCollector) Resolve(ctx context.Context, rawURL string) *model.DNSInfo {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := u.Hostname()

	if net.ParseIP(host) != nil {
		return &model.DNSInfo{Host: host, Resolvable: true}
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	return &model.DNSInfo{Host: host, Resolvable: err == nil && len(addrs) > 0}
}
