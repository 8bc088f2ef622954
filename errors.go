package mailvet

import "errors"

var (
	// ErrNoChecksConfigured is returned from Validate on a Validator
	// that was not built with New, so not even the syntax stage exists.
	ErrNoChecksConfigured = errors.New("mailvet: no validation checks configured")

	// ErrInvalidSMTPOptions is returned from Validate when WithSMTP was
	// called without a HeloDomain.
	ErrInvalidSMTPOptions = errors.New("mailvet: SMTPOptions requires HeloDomain")
)
