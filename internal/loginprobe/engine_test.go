package loginprobe

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/Bahjat/login-probe-tool/internal/model"
	"github.com/Bahjat/login-probe-tool/internal/platform/errs"
)

var errConnectionRefused = errors.New("connection refused")

// mockFetcher implements Fetcher for testing.
type mockFetcher struct {
	result *model.FetchResult
	err    error
}

func (m *mockFetcher) Fetch(_ context.Context, _ string) (*model.FetchResult, error) {
	return m.result, m.err
}

// mockSubmitter implements Submitter and records what was submitted.
type mockSubmitter struct {
	result    *model.SubmissionResult
	err       error
	gotForm   *model.DetectedForm
	gotFields url.Values
}

func (m *mockSubmitter) Submit(_ context.Context, form *model.DetectedForm, fields url.Values) (*model.SubmissionResult, error) {
	m.gotForm = form
	m.gotFields = fields
	return m.result, m.err
}

// stubSignals returns canned advisory signals.
type stubSignals struct {
	meta *model.PageMeta
	cert *model.CertificateInfo
	dns  *model.DNSInfo
}

func (s *stubSignals) PageMeta(_ string) *model.PageMeta { return s.meta }
func (s *stubSignals) Certificate(_ context.Context, _ string) *model.CertificateInfo {
	return s.cert
}
func (s *stubSignals) Resolve(_ context.Context, _ string) *model.DNSInfo { return s.dns }

// stubMatcher implements safelistMatcher.
type stubMatcher struct {
	match *model.SafelistMatch
}

func (s *stubMatcher) Check(_ string) *model.SafelistMatch { return s.match }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const loginPageHTML = `<!DOCTYPE html><html><body>
<form action="/session" method="post">
<input type="hidden" name="csrf" value="t0k3n">
<input type="text" name="username">
<input type="password" name="password">
</form>
</body></html>`

func TestEngine_Check_SameDomain(t *testing.T) {
	fetcher := &mockFetcher{result: &model.FetchResult{
		FinalURL:   "https://login.example.com/login",
		StatusCode: 200,
		Body:       loginPageHTML,
	}}
	submitter := &mockSubmitter{result: &model.SubmissionResult{
		FinalURL:   "https://accounts.example.com/welcome",
		StatusCode: 200,
	}}

	engine := NewEngine(fetcher, submitter, nil, nil, discardLogger())
	target := &model.LoginTarget{
		LoginURL: "https://login.example.com/login",
		Username: "alice",
		Password: "hunter2",
	}

	report := engine.Check(context.Background(), target)

	if report.Verdict != model.VerdictSameDomain {
		t.Fatalf("Verdict = %s, want SAME_DOMAIN (message: %s)", report.Verdict, report.Message)
	}
	if report.LoginDomain != "example.com" || report.FinalDomain != "example.com" {
		t.Errorf("domains = %q/%q, want example.com both", report.LoginDomain, report.FinalDomain)
	}
	if report.FinalURL != "https://accounts.example.com/welcome" {
		t.Errorf("FinalURL = %q", report.FinalURL)
	}

	// The submission must have carried the hidden token and credentials.
	if submitter.gotFields.Get("csrf") != "t0k3n" {
		t.Errorf("submitted csrf = %q, want t0k3n", submitter.gotFields.Get("csrf"))
	}
	if submitter.gotFields.Get("username") != "alice" {
		t.Errorf("submitted username = %q, want alice", submitter.gotFields.Get("username"))
	}
	if submitter.gotForm.ActionURL != "https://login.example.com/session" {
		t.Errorf("action = %q, want resolved /session", submitter.gotForm.ActionURL)
	}
}

func TestEngine_Check_DifferentDomain(t *testing.T) {
	fetcher := &mockFetcher{result: &model.FetchResult{
		FinalURL:   "https://example.com/login",
		StatusCode: 200,
		Body:       loginPageHTML,
	}}
	submitter := &mockSubmitter{result: &model.SubmissionResult{
		FinalURL:   "https://evil-example.net/harvest",
		StatusCode: 200,
	}}

	engine := NewEngine(fetcher, submitter, nil, nil, discardLogger())
	report := engine.Check(context.Background(), &model.LoginTarget{
		LoginURL: "https://example.com/login",
		Username: "alice",
		Password: "hunter2",
	})

	if report.Verdict != model.VerdictDifferentDomain {
		t.Fatalf("Verdict = %s, want DIFFERENT_DOMAIN (message: %s)", report.Verdict, report.Message)
	}
	if report.FinalDomain != "evil-example.net" {
		t.Errorf("FinalDomain = %q, want evil-example.net", report.FinalDomain)
	}
}

func TestEngine_Check_ExtraFieldsOverride(t *testing.T) {
	fetcher := &mockFetcher{result: &model.FetchResult{
		FinalURL:   "https://example.com/login",
		StatusCode: 200,
		Body:       loginPageHTML,
	}}
	submitter := &mockSubmitter{result: &model.SubmissionResult{
		FinalURL:   "https://example.com/welcome",
		StatusCode: 200,
	}}

	engine := NewEngine(fetcher, submitter, nil, nil, discardLogger())
	engine.Check(context.Background(), &model.LoginTarget{
		LoginURL:    "https://example.com/login",
		Username:    "alice",
		Password:    "hunter2",
		ExtraFields: map[string]string{"csrf": "mine"},
	})

	if got := submitter.gotFields.Get("csrf"); got != "mine" {
		t.Errorf("submitted csrf = %q, want extra override %q", got, "mine")
	}
}

func TestEngine_Check_ErrorVerdicts(t *testing.T) {
	okFetch := &model.FetchResult{
		FinalURL:   "https://example.com/login",
		StatusCode: 200,
		Body:       loginPageHTML,
	}

	tests := []struct {
		name        string
		loginURL    string
		fetcher     *mockFetcher
		submitter   *mockSubmitter
		wantMessage string
	}{
		{
			name:        "invalid login URL",
			loginURL:    "not-a-valid-url",
			fetcher:     &mockFetcher{result: okFetch},
			submitter:   &mockSubmitter{},
			wantMessage: "InvalidInput",
		},
		{
			name:        "unsupported scheme",
			loginURL:    "ftp://example.com/login",
			fetcher:     &mockFetcher{result: okFetch},
			submitter:   &mockSubmitter{},
			wantMessage: "InvalidInput",
		},
		{
			name:        "fetch failure",
			loginURL:    "https://example.com/login",
			fetcher:     &mockFetcher{err: &errs.AppError{Kind: errs.NetworkError, Message: "boom", Cause: errConnectionRefused}},
			submitter:   &mockSubmitter{},
			wantMessage: "NetworkError",
		},
		{
			name:     "no form on page",
			loginURL: "https://example.com/login",
			fetcher: &mockFetcher{result: &model.FetchResult{
				FinalURL:   "https://example.com/login",
				StatusCode: 200,
				Body:       "<html><body>No form here</body></html>",
			}},
			submitter:   &mockSubmitter{},
			wantMessage: "NoFormFound",
		},
		{
			name:        "submission failure",
			loginURL:    "https://example.com/login",
			fetcher:     &mockFetcher{result: okFetch},
			submitter:   &mockSubmitter{err: &errs.AppError{Kind: errs.TLSError, Message: "handshake failed"}},
			wantMessage: "TLSError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.fetcher, tt.submitter, nil, nil, discardLogger())
			report := engine.Check(context.Background(), &model.LoginTarget{
				LoginURL: tt.loginURL,
				Username: "alice",
				Password: "hunter2",
			})

			if report.Verdict != model.VerdictError {
				t.Fatalf("Verdict = %s, want ERROR", report.Verdict)
			}
			if !strings.Contains(report.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want it to mention %q", report.Message, tt.wantMessage)
			}
		})
	}
}

func TestEngine_Check_ErrorKeepsLoginDomain(t *testing.T) {
	fetcher := &mockFetcher{err: &errs.AppError{Kind: errs.NetworkError, Message: "down", Cause: errConnectionRefused}}
	engine := NewEngine(fetcher, &mockSubmitter{}, nil, nil, discardLogger())

	report := engine.Check(context.Background(), &model.LoginTarget{
		LoginURL: "https://login.example.com/",
		Username: "alice",
		Password: "hunter2",
	})

	if report.Verdict != model.VerdictError {
		t.Fatalf("Verdict = %s, want ERROR", report.Verdict)
	}
	if report.LoginDomain != "example.com" {
		t.Errorf("LoginDomain = %q, want example.com even on error", report.LoginDomain)
	}
	if report.FinalDomain != "" || report.FinalURL != "" {
		t.Errorf("final fields should stay empty on error, got %q / %q", report.FinalDomain, report.FinalURL)
	}
}

func TestEngine_Check_AttachesSignals(t *testing.T) {
	fetcher := &mockFetcher{result: &model.FetchResult{
		FinalURL:   "https://example.com/login",
		StatusCode: 200,
		Body:       loginPageHTML,
	}}
	submitter := &mockSubmitter{result: &model.SubmissionResult{
		FinalURL:   "https://evil-example.net/harvest",
		StatusCode: 200,
		Body:       "<html><title>Totally Legit Bank</title></html>",
	}}
	signals := &stubSignals{
		meta: &model.PageMeta{Title: "Totally Legit Bank"},
		cert: &model.CertificateInfo{Issuer: "CN=evil", SelfSigned: true},
		dns:  &model.DNSInfo{Host: "evil-example.net", Resolvable: true},
	}
	matcher := &stubMatcher{match: &model.SafelistMatch{Lookalike: true, LookalikeOf: "example.com"}}

	engine := NewEngine(fetcher, submitter, signals, matcher, discardLogger())
	report := engine.Check(context.Background(), &model.LoginTarget{
		LoginURL: "https://example.com/login",
		Username: "alice",
		Password: "hunter2",
	})

	if report.Page == nil || report.Page.Title != "Totally Legit Bank" {
		t.Errorf("Page = %+v, want the stubbed title", report.Page)
	}
	if report.Certificate == nil || !report.Certificate.SelfSigned {
		t.Errorf("Certificate = %+v, want self-signed flag", report.Certificate)
	}
	if report.DNS == nil || !report.DNS.Resolvable {
		t.Errorf("DNS = %+v, want resolvable", report.DNS)
	}
	if report.Safelist == nil || !report.Safelist.Lookalike {
		t.Errorf("Safelist = %+v, want lookalike match", report.Safelist)
	}
}
