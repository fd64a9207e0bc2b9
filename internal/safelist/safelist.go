// Package safelist checks a final landing domain against an allowlist of
// known-good domains, flagging exact/subdomain matches and close lookalikes
// (typosquats) separately.
package safelist

import (
	"encoding/csv"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/net/publicsuffix"

	"github.com/Bahjat/login-probe-tool/internal/model"
)

// lookalikeThreshold is the normalized similarity above which a non-equal
// domain counts as a lookalike of an allowlisted one.
const lookalikeThreshold = 0.85

// List is an ordered set of allowlisted registrable domains.
type List struct {
	domains []string
	seen    map[string]struct{}
}

// Load reads a Tranco-style CSV ("rank,domain" rows, or one domain per
// line) and reduces every entry to its registrable domain.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("safelist: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	list := &List{seen: make(map[string]struct{})}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("safelist: parsing %s: %w", path, err)
	}
	for _, row := range rows {
		var raw string
		switch {
		case len(row) > 1:
			raw = row[1]
		case len(row) == 1:
			raw = row[0]
		}
		domain := registrable(strings.ToLower(strings.TrimSpace(raw)))
		if domain == "" {
			continue
		}
		if _, dup := list.seen[domain]; dup {
			continue
		}
		list.seen[domain] = struct{}{}
		list.domains = append(list.domains, domain)
	}
	return list, nil
}

// Len returns the number of allowlisted domains.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.domains)
}

// Check relates a registrable domain to the allowlist. Subdomain matches
// are already absorbed by the eTLD+1 reduction of the input, so Listed is
// a plain membership test; Lookalike reports the first allowlisted domain
// within the similarity threshold.
func (l *List) Check(domain string) *model.SafelistMatch {
	if l.Len() == 0 {
		return nil
	}
	domain = strings.ToLower(strings.TrimSpace(domain))

	if _, ok := l.seen[domain]; ok {
		return &model.SafelistMatch{Listed: true, Matched: domain}
	}

	match := &model.SafelistMatch{}
	for _, safe := range l.domains {
		if similarity(domain, safe) >= lookalikeThreshold {
			match.Lookalike = true
			match.LookalikeOf = safe
			break
		}
	}
	return match
}

// similarity is a normalized Levenshtein ratio in [0,1].
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := max(len(a), len(b))
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// registrable reduces an allowlist entry (possibly a full hostname) to its
// eTLD+1, passing through IPs and single-label names.
func registrable(host string) string {
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}
