package loginprobe

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/Bahjat/login-probe-tool/internal/model"
	"github.com/Bahjat/login-probe-tool/internal/platform/errs"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRedirects = 10
	userAgent           = "LoginProbe/1.0"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// SessionOptions configures the HTTP session for one probe run.
type SessionOptions struct {
	Timeout      time.Duration
	MaxRedirects int
	// Insecure disables TLS certificate verification.
	Insecure bool
	// BlockPrivate rejects connections to private/reserved IP ranges,
	// for runs fed from untrusted URL lists.
	BlockPrivate bool
}

// Session owns the HTTP state for one probe run. The cookie jar is shared
// between the login-page fetch and the credential submission so that
// server-issued session cookies survive the whole chain, and is discarded
// with the session.
type Session struct {
	client       *resty.Client
	maxRedirects int
}

// NewSession returns a Session backed by a resty client with a cookie jar,
// a bounded redirect chain, a body size cap, and optional TLS relaxation.
func NewSession(opts SessionOptions) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}

	transport := &http.Transport{
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if opts.BlockPrivate {
		transport.DialContext = safeDialer().DialContext
	}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- operator opted in via --insecure
	}

	jar, _ := cookiejar.New(nil)

	s := &Session{maxRedirects: opts.MaxRedirects}
	s.client = resty.New().
		SetTransport(transport).
		SetCookieJar(jar).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetDoNotParseResponse(true).
		SetRedirectPolicy(resty.RedirectPolicyFunc(s.redirectPolicy))

	return s
}

// redirectPolicy bounds the redirect chain and blocks non-http(s) targets.
func (s *Session) redirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= s.maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, s.maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Fetch retrieves the login page with GET, following redirects, and returns
// the decoded body together with the final resolved URL.
func (s *Session) Fetch(ctx context.Context, loginURL string) (*model.FetchResult, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(loginURL)
	if err != nil {
		return nil, classifyTransportError(err, "the login page could not be fetched")
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.NetworkError,
			Message: "reading the login page body failed",
			Cause:   err,
		}
	}

	if resp.StatusCode() >= 400 {
		return nil, &errs.AppError{
			Kind:           errs.NetworkError,
			UpstreamStatus: resp.StatusCode(),
			Message:        fmt.Sprintf("the login page returned status %d", resp.StatusCode()),
		}
	}

	return &model.FetchResult{
		FinalURL:   resp.RawResponse.Request.URL.String(),
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       body,
	}, nil
}

// readBody drains at most 10 MB of the raw response body, decoding it to
// UTF-8 according to the declared content type.
func readBody(resp *resty.Response) (string, error) {
	raw := resp.RawBody()
	if raw == nil {
		return "", nil
	}
	defer func() { _ = raw.Close() }()

	// Limit response body to 10 MB to prevent memory exhaustion from
	// extremely large or infinite responses.
	const maxResponseBody = 10 << 20
	b, err := io.ReadAll(io.LimitReader(raw, maxResponseBody))
	if err != nil {
		return "", err
	}

	r, err := charset.NewReader(bytes.NewReader(b), resp.Header().Get("Content-Type"))
	if err != nil {
		return string(b), nil
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(b), nil
	}
	return string(decoded), nil
}

// classifyTransportError separates certificate/handshake failures from
// plain connectivity failures.
func classifyTransportError(err error, message string) *errs.AppError {
	kind := errs.NetworkError

	var (
		certVerify  *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostname    x509.HostnameError
		certInvalid x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &certVerify),
		errors.As(err, &recordErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostname),
		errors.As(err, &certInvalid):
		kind = errs.TLSError
	}

	return &errs.AppError{Kind: kind, Message: message, Cause: err}
}
