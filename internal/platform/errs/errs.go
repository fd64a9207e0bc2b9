package errs

import "fmt"

// Kind categorizes probe errors for reporting and diagnostics.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates the supplied login URL or flags were malformed.
	InvalidInput
	// NoFormFound indicates the page contained no usable login form.
	NoFormFound
	// AmbiguousForm indicates a login form was found but its fields could
	// not be resolved without explicit overrides.
	AmbiguousForm
	// NetworkError indicates the target could not be reached or returned
	// an error status.
	NetworkError
	// TLSError indicates the TLS handshake or certificate verification failed.
	TLSError
	// DomainParseError indicates a registrable domain could not be derived
	// from a URL.
	DomainParseError
)

// String returns the taxonomy name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NoFormFound:
		return "NoFormFound"
	case AmbiguousForm:
		return "AmbiguousForm"
	case NetworkError:
		return "NetworkError"
	case TLSError:
		return "TLSError"
	case DomainParseError:
		return "DomainParseError"
	}
	return "Unknown"
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the target, when relevant
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}
