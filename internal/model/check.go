package model

import (
	"net/http"
	"time"
)

// Verdict is the final categorical output of a single probe run.
type Verdict string

const (
	// VerdictSameDomain means the submission landed on the same registrable domain.
	VerdictSameDomain Verdict = "SAME_DOMAIN"
	// VerdictDifferentDomain means the submission redirected to another registrable domain.
	VerdictDifferentDomain Verdict = "DIFFERENT_DOMAIN"
	// VerdictError means the pipeline could not produce a comparison.
	VerdictError Verdict = "ERROR"
)

// LoginTarget describes one login page and the credentials to submit.
// Immutable after construction from CLI input.
type LoginTarget struct {
	LoginURL      string
	Username      string
	Password      string
	UsernameField string // optional override, bypasses auto-detection
	PasswordField string // optional override, bypasses auto-detection
	ExtraFields   map[string]string
}

// DetectedForm is the login form extracted from the fetched page.
// Derived transiently from parsed HTML and discarded after submission.
type DetectedForm struct {
	ActionURL     string
	Method        string            // GET or POST
	Fields        map[string]string // input name -> default value (hidden tokens etc.)
	UsernameField string
	PasswordField string
}

// FetchResult is the outcome of retrieving the login page.
type FetchResult struct {
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       string
}

// SubmissionResult is the outcome of submitting the login form.
type SubmissionResult struct {
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       string
}

// PageMeta holds descriptive metadata scraped from the landing page.
type PageMeta struct {
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	OGTitle       string `json:"og_title,omitempty"`
	OGDescription string `json:"og_description,omitempty"`
}

// CertificateInfo summarizes the TLS certificate presented by the final host.
type CertificateInfo struct {
	Issuer          string    `json:"issuer"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidTo         time.Time `json:"valid_to"`
	RecentlyIssued  bool      `json:"recently_issued"`
	SelfSigned      bool      `json:"self_signed"`
	UntrustedIssuer bool      `json:"untrusted_issuer"`
}

// DNSInfo records whether the final host resolved.
type DNSInfo struct {
	Host       string `json:"host"`
	Resolvable bool   `json:"resolvable"`
}

// SafelistMatch records how the final domain relates to the allowlist.
type SafelistMatch struct {
	Listed      bool   `json:"listed"`
	Matched     string `json:"matched,omitempty"`
	Lookalike   bool   `json:"lookalike"`
	LookalikeOf string `json:"lookalike_of,omitempty"`
}

// Report is the terminal output of one probe run. The first four fields are
// always present in JSON output; the rest are advisory and additive.
type Report struct {
	Verdict     Verdict          `json:"verdict"`
	LoginDomain string           `json:"login_domain"`
	FinalDomain string           `json:"final_domain"`
	FinalURL    string           `json:"final_url"`
	StatusCode  int              `json:"status_code,omitempty"`
	Message     string           `json:"message,omitempty"`
	Page        *PageMeta        `json:"page,omitempty"`
	Certificate *CertificateInfo `json:"certificate,omitempty"`
	DNS         *DNSInfo         `json:"dns,omitempty"`
	Safelist    *SafelistMatch   `json:"safelist,omitempty"`
}
