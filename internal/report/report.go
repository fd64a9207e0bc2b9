// Package report renders a probe Report for humans or machines and maps
// verdicts to process exit codes.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Bahjat/login-probe-tool/internal/model"
)

// Exit codes, one per verdict.
const (
	ExitSameDomain      = 0
	ExitDifferentDomain = 1
	ExitError           = 2
)

// ExitCode maps a verdict to the process exit code.
func ExitCode(v model.Verdict) int {
	switch v {
	case model.VerdictSameDomain:
		return ExitSameDomain
	case model.VerdictDifferentDomain:
		return ExitDifferentDomain
	}
	return ExitError
}

// Render writes the report to w, as an indented JSON object or as a
// human-readable block.
func Render(w io.Writer, r *model.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return renderText(w, r)
}

func renderText(w io.Writer, r *model.Report) error {
	if _, err := fmt.Fprintf(w, "verdict: %s\n", r.Verdict); err != nil {
		return err
	}

	lines := []struct {
		label string
		value string
	}{
		{"login domain", r.LoginDomain},
		{"final domain", r.FinalDomain},
		{"final url", r.FinalURL},
		{"message", r.Message},
	}
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %-13s %s\n", l.label+":", l.value); err != nil {
			return err
		}
	}

	for _, note := range notes(r) {
		if _, err := fmt.Fprintf(w, "  note: %s\n", note); err != nil {
			return err
		}
	}
	return nil
}

// notes turns the advisory signals into one-line remarks.
func notes(r *model.Report) []string {
	var out []string

	if r.Page != nil && r.Page.Title != "" {
		out = append(out, fmt.Sprintf("landing page title: %q", r.Page.Title))
	}
	if c := r.Certificate; c != nil {
		if c.SelfSigned {
			out = append(out, "certificate is self-signed")
		}
		if c.RecentlyIssued {
			out = append(out, fmt.Sprintf("certificate issued recently (%s)", c.ValidFrom.Format("2006-01-02")))
		}
		if c.UntrustedIssuer && !c.SelfSigned {
			out = append(out, fmt.Sprintf("certificate issuer not widely trusted: %s", c.Issuer))
		}
	}
	if r.DNS != nil && !r.DNS.Resolvable {
		out = append(out, fmt.Sprintf("final host %s does not resolve", r.DNS.Host))
	}
	if s := r.Safelist; s != nil {
		switch {
		case s.Listed:
			out = append(out, fmt.Sprintf("final domain %s is on the allowlist", s.Matched))
		case s.Lookalike:
			out = append(out, fmt.Sprintf("final domain looks like allowlisted %s", s.LookalikeOf))
		}
	}
	return out
}
