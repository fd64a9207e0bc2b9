package loginprobe

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/Bahjat/login-probe-tool/internal/model"
	"github.com/Bahjat/login-probe-tool/internal/platform/errs"
)

// BuildFields assembles the full submission field set: the form's default
// values (hidden tokens included) first, then the credentials under the
// resolved field names, then extra fields. Later writers win on key
// collision, so --extra overrides everything.
func BuildFields(form *model.DetectedForm, target *model.LoginTarget) url.Values {
	fields := url.Values{}
	for name, value := range form.Fields {
		fields.Set(name, value)
	}

	fields.Set(form.UsernameField, target.Username)
	fields.Set(form.PasswordField, target.Password)

	for name, value := range target.ExtraFields {
		fields.Set(name, value)
	}
	return fields
}

// Submit performs the form submission with the form's declared method and
// action URL through the session's shared cookie jar, following redirects,
// and returns the final resolved URL.
func (s *Session) Submit(ctx context.Context, form *model.DetectedForm, fields url.Values) (*model.SubmissionResult, error) {
	req := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html")

	var (
		resp *resty.Response
		err  error
	)
	if form.Method == http.MethodGet {
		resp, err = req.SetQueryParamsFromValues(fields).Get(form.ActionURL)
	} else {
		resp, err = req.SetFormDataFromValues(fields).Post(form.ActionURL)
	}
	if err != nil {
		return nil, classifyTransportError(err, "the form submission failed")
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.NetworkError,
			Message: "reading the submission response failed",
			Cause:   err,
		}
	}

	return &model.SubmissionResult{
		FinalURL:   resp.RawResponse.Request.URL.String(),
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       body,
	}, nil
}
