package loginprobe

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/Bahjat/login-probe-tool/internal/model"
	"github.com/Bahjat/login-probe-tool/internal/platform/errs"
	"github.com/Bahjat/login-probe-tool/internal/platform/runid"
)

// Fetcher retrieves the login page.
type Fetcher interface {
	Fetch(ctx context.Context, loginURL string) (*model.FetchResult, error)
}

// Submitter performs the form submission through the shared session.
type Submitter interface {
	Submit(ctx context.Context, form *model.DetectedForm, fields url.Values) (*model.SubmissionResult, error)
}

// signalCollector gathers best-effort advisory signals for the report.
type signalCollector interface {
	PageMeta(pageHTML string) *model.PageMeta
	Certificate(ctx context.Context, rawURL string) *model.CertificateInfo
	Resolve(ctx context.Context, rawURL string) *model.DNSInfo
}

// safelistMatcher relates the final registrable domain to an allowlist.
type safelistMatcher interface {
	Check(domain string) *model.SafelistMatch
}

// Engine runs the probe pipeline: fetch login page, locate the login form,
// submit credentials, compare registrable domains, enrich with signals.
type Engine struct {
	fetcher   Fetcher
	submitter Submitter
	signals   signalCollector
	safelist  safelistMatcher
	logger    *slog.Logger
}

// NewEngine wires the pipeline. signals and safelist may be nil.
func NewEngine(fetcher Fetcher, submitter Submitter, signals signalCollector, safelist safelistMatcher, logger *slog.Logger) *Engine {
	return &Engine{
		fetcher:   fetcher,
		submitter: submitter,
		signals:   signals,
		safelist:  safelist,
		logger:    logger,
	}
}

// Check executes one probe run and always produces exactly one Report.
// Every pipeline failure is downgraded to Verdict ERROR at this boundary;
// nothing propagates.
func (e *Engine) Check(ctx context.Context, target *model.LoginTarget) *model.Report {
	id := runid.New()
	ctx = runid.NewContext(ctx, id)
	logger := e.logger.With("run_id", id, "login_url", target.LoginURL)

	report, err := e.run(ctx, logger, target)
	if err != nil {
		logger.Error("probe failed", "error", err)
		return e.errorReport(target, err)
	}

	logger.Info("probe complete",
		"verdict", report.Verdict,
		"login_domain", report.LoginDomain,
		"final_domain", report.FinalDomain,
		"final_url", report.FinalURL,
	)
	return report
}

func (e *Engine) run(ctx context.Context, logger *slog.Logger, target *model.LoginTarget) (*model.Report, error) {
	if err := validateLoginURL(target.LoginURL); err != nil {
		return nil, err
	}

	page, err := e.fetcher.Fetch(ctx, target.LoginURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("login page fetched", "final_url", page.FinalURL, "status", page.StatusCode)

	base, err := url.Parse(page.FinalURL)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.DomainParseError,
			Message: "the fetched page resolved to an unparseable URL",
			Cause:   err,
		}
	}

	form, err := LocateForm(page.Body, base, target)
	if err != nil {
		return nil, err
	}
	logger.Debug("login form located",
		"action", form.ActionURL,
		"method", form.Method,
		"username_field", form.UsernameField,
		"password_field", form.PasswordField,
	)

	submission, err := e.submitter.Submit(ctx, form, BuildFields(form, target))
	if err != nil {
		return nil, err
	}
	logger.Debug("form submitted", "final_url", submission.FinalURL, "status", submission.StatusCode)

	verdict, loginDomain, finalDomain, err := CompareDomains(target.LoginURL, submission.FinalURL)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		Verdict:     verdict,
		LoginDomain: loginDomain,
		FinalDomain: finalDomain,
		FinalURL:    submission.FinalURL,
		StatusCode:  submission.StatusCode,
	}
	e.collectSignals(ctx, report, submission)
	return report, nil
}

// collectSignals enriches the report; signals are advisory and never alter
// the verdict.
func (e *Engine) collectSignals(ctx context.Context, report *model.Report, submission *model.SubmissionResult) {
	if e.signals != nil {
		report.Page = e.signals.PageMeta(submission.Body)
		report.Certificate = e.signals.Certificate(ctx, submission.FinalURL)
		report.DNS = e.signals.Resolve(ctx, submission.FinalURL)
	}
	if e.safelist != nil {
		report.Safelist = e.safelist.Check(report.FinalDomain)
	}
}

// errorReport downgrades a pipeline failure to a Verdict=ERROR report,
// keeping whatever context is still derivable.
func (e *Engine) errorReport(target *model.LoginTarget, err error) *model.Report {
	report := &model.Report{
		Verdict: model.VerdictError,
		Message: err.Error(),
	}
	if domain, derr := RegistrableDomain(target.LoginURL); derr == nil {
		report.LoginDomain = domain
	}

	var appErr *errs.AppError
	if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
		report.StatusCode = appErr.UpstreamStatus
	}
	return report
}

func validateLoginURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "invalid login URL; expected something like https://example.com/login",
			Cause:   err,
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "only http and https login URLs are supported",
		}
	}
	return nil
}
