package loginprobe

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/Bahjat/login-probe-tool/internal/model"
	"github.com/Bahjat/login-probe-tool/internal/platform/errs"
)

// RegistrableDomain extracts the eTLD+1 from a URL, so that
// login.example.com and accounts.example.com both reduce to example.com.
// IP literals and single-label hosts (localhost) have no public suffix and
// are returned as-is.
func RegistrableDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &errs.AppError{
			Kind:    errs.DomainParseError,
			Message: fmt.Sprintf("cannot parse URL %q", rawURL),
			Cause:   err,
		}
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return "", &errs.AppError{
			Kind:    errs.DomainParseError,
			Message: fmt.Sprintf("URL %q has no host", rawURL),
		}
	}

	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host, nil
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", &errs.AppError{
			Kind:    errs.DomainParseError,
			Message: fmt.Sprintf("cannot derive a registrable domain from %q", host),
			Cause:   err,
		}
	}
	return domain, nil
}

// CompareDomains reduces both URLs to their registrable domains and
// returns the verdict together with the two domains.
func CompareDomains(loginURL, finalURL string) (model.Verdict, string, string, error) {
	loginDomain, err := RegistrableDomain(loginURL)
	if err != nil {
		return model.VerdictError, "", "", err
	}
	finalDomain, err := RegistrableDomain(finalURL)
	if err != nil {
		return model.VerdictError, loginDomain, "", err
	}

	if loginDomain == finalDomain {
		return model.VerdictSameDomain, loginDomain, finalDomain, nil
	}
	return model.VerdictDifferentDomain, loginDomain, finalDomain, nil
}
