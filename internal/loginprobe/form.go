package loginprobe

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bahjat/login-probe-tool/internal/model"
	"github.com/Bahjat/login-probe-tool/internal/platform/errs"
)

// usernameNames are common field names for the identity input of a login
// form, in priority order.
var usernameNames = []string{
	"username", "user", "login", "email", "usr", "account",
	"uname", "userid", "user_id", "loginid", "login_id",
	"email_address", "emailaddress", "user_name",
}

// usernameHints catch naming schemes not covered by the exact list
// (e.g. "j_username", "login-email").
var usernameHints = []string{"user", "email", "login"}

type scannedInput struct {
	name    string
	id      string
	typ     string // lowercased type attribute, empty when absent
	value   string
	checked bool
}

type scannedForm struct {
	action string
	method string
	inputs []scannedInput
}

// score ranks a form as a login-form candidate: forms without a password
// input score 0, a bare password form scores 1, and a form that also has a
// recognizable username input scores 2.
func (f *scannedForm) score() int {
	if !f.hasPasswordInput() {
		return 0
	}
	for _, in := range f.inputs {
		if in.isTextLike() && (matchesUsernamePattern(in.name) || matchesUsernamePattern(in.id)) {
			return 2
		}
	}
	return 1
}

func (f *scannedForm) hasPasswordInput() bool {
	for _, in := range f.inputs {
		if in.typ == "password" {
			return true
		}
	}
	return false
}

func (f *scannedForm) hasField(name string) bool {
	for _, in := range f.inputs {
		if in.name == name {
			return true
		}
	}
	return false
}

func (in scannedInput) isTextLike() bool {
	switch in.typ {
	case "", "text", "email", "tel":
		return true
	}
	return false
}

func matchesUsernamePattern(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, n := range usernameNames {
		if s == n {
			return true
		}
	}
	for _, h := range usernameHints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// LocateForm parses the fetched page and returns the most probable login
// form. Field-name overrides in the target take precedence unconditionally;
// ties between equally scored forms break by document order.
func LocateForm(pageHTML string, baseURL *url.URL, target *model.LoginTarget) (*model.DetectedForm, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.NoFormFound,
			Message: "the page HTML could not be parsed",
			Cause:   err,
		}
	}

	forms := scanForms(doc)
	if len(forms) == 0 {
		return nil, &errs.AppError{
			Kind:    errs.NoFormFound,
			Message: "the page contains no <form> elements",
		}
	}

	form := chooseForm(forms, target)
	if form == nil {
		return nil, &errs.AppError{
			Kind:    errs.NoFormFound,
			Message: "no form with a password input was found",
		}
	}

	passwordField, err := resolvePasswordField(form, target)
	if err != nil {
		return nil, err
	}
	usernameField, err := resolveUsernameField(form, target, passwordField)
	if err != nil {
		return nil, err
	}

	return &model.DetectedForm{
		ActionURL:     resolveAction(form.action, baseURL),
		Method:        form.method,
		Fields:        defaultFields(form),
		UsernameField: usernameField,
		PasswordField: passwordField,
	}, nil
}

func scanForms(doc *goquery.Document) []*scannedForm {
	var forms []*scannedForm
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		form := &scannedForm{
			action: strings.TrimSpace(sel.AttrOr("action", "")),
			method: normalizeMethod(sel.AttrOr("method", "")),
		}
		sel.Find("input").Each(func(_ int, in *goquery.Selection) {
			_, checked := in.Attr("checked")
			form.inputs = append(form.inputs, scannedInput{
				name:    strings.TrimSpace(in.AttrOr("name", "")),
				id:      strings.TrimSpace(in.AttrOr("id", "")),
				typ:     strings.ToLower(strings.TrimSpace(in.AttrOr("type", ""))),
				value:   in.AttrOr("value", ""),
				checked: checked,
			})
		})
		forms = append(forms, form)
	})
	return forms
}

// normalizeMethod maps the form's declared method to GET or POST. A form
// that declares nothing gets POST: login forms that rely on the HTML GET
// default would leak credentials into the query string, and real-world
// login tooling treats POST as the baseline.
func normalizeMethod(method string) string {
	if strings.EqualFold(strings.TrimSpace(method), "GET") {
		return "GET"
	}
	return "POST"
}

// chooseForm picks the best-scored candidate, first in document order on a
// tie. When both field names are overridden, a form carrying both named
// inputs outranks heuristic scores entirely.
func chooseForm(forms []*scannedForm, target *model.LoginTarget) *scannedForm {
	if target.UsernameField != "" && target.PasswordField != "" {
		for _, f := range forms {
			if f.hasField(target.UsernameField) && f.hasField(target.PasswordField) {
				return f
			}
		}
	}

	var best *scannedForm
	bestScore := 0
	for _, f := range forms {
		if s := f.score(); s > bestScore {
			best, bestScore = f, s
		}
	}
	return best
}

func resolvePasswordField(form *scannedForm, target *model.LoginTarget) (string, error) {
	if target.PasswordField != "" {
		return target.PasswordField, nil
	}
	for _, in := range form.inputs {
		if in.typ == "password" && in.name != "" {
			return in.name, nil
		}
	}
	return "", &errs.AppError{
		Kind:    errs.AmbiguousForm,
		Message: "the password input has no name attribute; use --password-field",
	}
}

// resolveUsernameField finds the identity input: a pattern match wins, a
// single remaining text-like input is accepted, anything else is ambiguous
// unless an override names the field.
func resolveUsernameField(form *scannedForm, target *model.LoginTarget, passwordField string) (string, error) {
	if target.UsernameField != "" {
		return target.UsernameField, nil
	}

	var candidates []scannedInput
	for _, in := range form.inputs {
		if in.isTextLike() && in.name != "" && in.name != passwordField {
			candidates = append(candidates, in)
		}
	}

	for _, in := range candidates {
		if matchesUsernamePattern(in.name) || matchesUsernamePattern(in.id) {
			return in.name, nil
		}
	}
	if len(candidates) == 1 {
		return candidates[0].name, nil
	}

	return "", &errs.AppError{
		Kind:    errs.AmbiguousForm,
		Message: "the username input could not be identified; use --username-field",
	}
}

// defaultFields collects the form's submittable inputs with their default
// values, so hidden tokens (CSRF etc.) ride along with the credentials.
// Unchecked checkboxes and radios are left out, as a browser would.
func defaultFields(form *scannedForm) map[string]string {
	fields := make(map[string]string)
	for _, in := range form.inputs {
		if in.name == "" {
			continue
		}
		if (in.typ == "checkbox" || in.typ == "radio") && !in.checked {
			continue
		}
		fields[in.name] = in.value
	}
	return fields
}

// resolveAction resolves the form's action against the page's final base
// URL. An empty or unparseable action submits back to the page itself.
func resolveAction(action string, baseURL *url.URL) string {
	if action == "" {
		return baseURL.String()
	}
	parsed, err := url.Parse(action)
	if err != nil {
		return baseURL.String()
	}
	return baseURL.ResolveReference(parsed).String()
}
